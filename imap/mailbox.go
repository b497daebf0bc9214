package imap

// Inbox is the name every server reports for the user's primary mailbox.
const Inbox = "INBOX"

// Role identifies one of the well-known folders a client shows at the top of its tree.
type Role int

const (
	RoleInbox Role = iota
	RoleDrafts
	RoleSent
	RoleArchive
	RoleJunk
	RoleTrash
)

func (r Role) String() string {
	switch r {
	case RoleInbox:
		return "Inbox"

	case RoleDrafts:
		return "Drafts"

	case RoleSent:
		return "Sent"

	case RoleArchive:
		return "Archive"

	case RoleJunk:
		return "Junk"

	case RoleTrash:
		return "Trash"

	default:
		return "Unknown"
	}
}

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleInbox, RoleDrafts, RoleSent, RoleArchive, RoleJunk, RoleTrash}
}
