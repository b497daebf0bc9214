package imap

import "github.com/emersion/go-imap"

const (
	AttrNoSelect    = imap.NoSelectAttr
	AttrNoInferiors = imap.NoInferiorsAttr
	AttrMarked      = imap.MarkedAttr
	AttrUnmarked    = imap.UnmarkedAttr

	AttrHasChildren   = `\HasChildren`
	AttrHasNoChildren = `\HasNoChildren`

	// Special Use attributes as defined in RFC-6154.
	AttrAll     = `\All`
	AttrArchive = `\Archive`
	AttrDrafts  = `\Drafts`
	AttrFlagged = `\Flagged`
	AttrJunk    = `\Junk`
	AttrSent    = `\Sent`
	AttrTrash   = `\Trash`
)
