// Package folder rebuilds the folder tree of a mailbox from the flat folder list a server reports.
package folder

import (
	"context"
	"fmt"
	"strings"

	"github.com/bradenaw/juniper/xslices"
	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	lotusimap "github.com/lotusmail/lotus/imap"
	"github.com/lotusmail/lotus/reporter"
)

// placeholderPath is the path of a special root the server has not reported yet.
const placeholderPath = "~"

type roleMarker struct {
	attr string
	role lotusimap.Role
}

// roleMarkers is checked in order. If a folder carries several markers, the first one listed wins.
var roleMarkers = []roleMarker{
	{attr: lotusimap.AttrDrafts, role: lotusimap.RoleDrafts},
	{attr: lotusimap.AttrSent, role: lotusimap.RoleSent},
	{attr: lotusimap.AttrArchive, role: lotusimap.RoleArchive},
	{attr: lotusimap.AttrJunk, role: lotusimap.RoleJunk},
	{attr: lotusimap.AttrTrash, role: lotusimap.RoleTrash},
}

// Engine incrementally links server folders into a tree below the six fixed roots.
// It is not safe for concurrent use.
type Engine struct {
	roots []*Root

	// aliases maps the server name of every discovered root to that root. It only grows.
	aliases map[string]*Root

	// placeholders holds hierarchy levels that are known not to be folders of their own.
	// Nested folders may be linked across them.
	placeholders map[string]struct{}
}

func NewEngine() *Engine {
	engine := &Engine{
		aliases:      make(map[string]*Root),
		placeholders: make(map[string]struct{}),
	}

	for _, role := range lotusimap.Roles() {
		engine.roots = append(engine.roots, newRoot(role))
	}

	return engine
}

func newRoot(role lotusimap.Role) *Root {
	if role == lotusimap.RoleInbox {
		return &Root{Node: *newNode(role.String(), lotusimap.Inbox), Role: role}
	}

	marker := roleMarkers[xslices.IndexFunc(roleMarkers, func(m roleMarker) bool { return m.role == role })]

	return &Root{Node: *newNode(role.String(), placeholderPath, marker.attr), Role: role}
}

// Roots returns the six roots in display order.
func (e *Engine) Roots() []*Root {
	return e.roots
}

// Root returns the root playing the given role.
func (e *Engine) Root(role lotusimap.Role) *Root {
	return e.roots[role]
}

// Lookup finds the folder with the given global path anywhere in the tree.
func (e *Engine) Lookup(path string) (*Node, bool) {
	var found *Node

	for _, root := range e.roots {
		root.Walk(func(node *Node, _ int) bool {
			if node.Path == path {
				found = node
			}

			return found == nil
		})

		if found != nil {
			return found, true
		}
	}

	return nil, false
}

// Clone returns a deep copy of the roots, safe to hand to other goroutines.
func (e *Engine) Clone() []*Root {
	return xslices.Map(e.roots, func(root *Root) *Root {
		return root.clone()
	})
}

// ResolveAll resolves a full folder listing. Folders that cannot be selected are skipped and the rest are
// resolved shallowest first. Folders that fail to resolve are logged and dropped.
// It returns the number of folders that were linked into the tree.
func (e *Engine) ResolveAll(ctx context.Context, entries []*imap.MailboxInfo) int {
	entries, placeholders := prepare(entries)

	for _, name := range placeholders {
		e.placeholders[name] = struct{}{}
	}

	var resolved int

	for _, entry := range entries {
		if err := e.Resolve(entry); err != nil {
			logrus.WithError(err).WithField("name", entry.Name).Warn("Failed to resolve folder")

			reporter.MessageWithContext(ctx, "Failed to resolve folder", reporter.Context{
				"name":      entry.Name,
				"delimiter": entry.Delimiter,
				"error":     err.Error(),
			})

			continue
		}

		resolved++
	}

	return resolved
}

// Resolve links one folder into the tree. The parent of a nested folder must already have been resolved;
// out of order folders fail with ErrParentNotFound and are not retried.
func (e *Engine) Resolve(entry *imap.MailboxInfo) error {
	if entry.Name == lotusimap.Inbox {
		inbox := e.Root(lotusimap.RoleInbox)

		inbox.Attributes.Merge(entry.Attributes...)
		e.aliases[entry.Name] = inbox

		return nil
	}

	if root, ok := e.specialRoot(entry); ok {
		root.Name = entry.Name
		root.Path = entry.Name
		root.Attributes.Merge(entry.Attributes...)
		e.aliases[entry.Name] = root

		return nil
	}

	if entry.Delimiter == "" {
		return fmt.Errorf("%w: %q", ErrNoParent, entry.Name)
	}

	prefix, _, ok := strings.Cut(entry.Name, entry.Delimiter)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoParent, entry.Name)
	}

	root, ok := e.aliases[prefix]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoot, entry.Name)
	}

	parent, name, err := e.descend(&root.Node, entry.Name, len(prefix)+len(entry.Delimiter), entry.Delimiter)
	if err != nil {
		return err
	}

	parent.addChild(name, entry.Name, entry.Attributes)

	return nil
}

func (e *Engine) specialRoot(entry *imap.MailboxInfo) (*Root, bool) {
	attrs := lotusimap.NewAttrSet(entry.Attributes...)

	for _, marker := range roleMarkers {
		if attrs.Contains(marker.attr) {
			return e.Root(marker.role), true
		}
	}

	return nil, false
}

// descend walks down from node along name, starting at byte offset from. At each delimiter it looks for a child
// named by the text since the last matched boundary. When there is none the text keeps growing up to the next
// delimiter, so a local name may span several levels, but only across levels that are known placeholders.
// It returns the deepest matched node and the unmatched suffix.
func (e *Engine) descend(node *Node, name string, from int, delimiter string) (*Node, string, error) {
	start, offset := from, from

	for {
		idx := strings.Index(name[offset:], delimiter)
		if idx < 0 {
			break
		}

		end := offset + idx

		if child, ok := node.Child(name[start:end]); ok {
			node, start = child, end+len(delimiter)
		} else if _, ok := e.placeholders[name[:end]]; !ok {
			return nil, "", fmt.Errorf("%w: %q of %q", ErrParentNotFound, name[:end], name)
		}

		offset = end + len(delimiter)
	}

	return node, name[start:], nil
}
