package folder

import (
	"strings"

	"github.com/bradenaw/juniper/xslices"
	"github.com/emersion/go-imap"
	"golang.org/x/exp/slices"

	lotusimap "github.com/lotusmail/lotus/imap"
)

// depth returns the number of hierarchy levels below the top of the given name.
func depth(name, delimiter string) int {
	if delimiter == "" {
		return 0
	}

	return strings.Count(name, delimiter)
}

// listSuperiors returns all names superior to the given name, if hierarchies are indicated with the given delimiter.
func listSuperiors(name, delimiter string) []string {
	if delimiter == "" {
		return nil
	}

	split := strings.Split(name, delimiter)

	var superiors []string

	for i := 1; i < len(split); i++ {
		superiors = append(superiors, strings.Join(split[0:i], delimiter))
	}

	return superiors
}

// prepare drops folders that cannot be selected and orders the rest so that every folder comes after all folders
// shallower than it. It also returns the names of hierarchy levels that exist on the server only as part of a
// deeper name: levels reported as non-selectable and levels never reported at all.
func prepare(entries []*imap.MailboxInfo) ([]*imap.MailboxInfo, []string) {
	entries = xslices.Filter(entries, func(entry *imap.MailboxInfo) bool {
		return entry != nil
	})

	selectable := xslices.Filter(entries, func(entry *imap.MailboxInfo) bool {
		return !lotusimap.NewAttrSet(entry.Attributes...).Contains(lotusimap.AttrNoSelect)
	})

	listed := make(map[string]struct{}, len(selectable))

	for _, entry := range selectable {
		listed[entry.Name] = struct{}{}
	}

	var placeholders []string

	for _, entry := range entries {
		for _, superior := range listSuperiors(entry.Name, entry.Delimiter) {
			if _, ok := listed[superior]; ok {
				continue
			}

			if !slices.Contains(placeholders, superior) {
				placeholders = append(placeholders, superior)
			}
		}
	}

	slices.SortStableFunc(selectable, func(a, b *imap.MailboxInfo) bool {
		return depth(a.Name, a.Delimiter) < depth(b.Name, b.Delimiter)
	})

	return selectable, placeholders
}
