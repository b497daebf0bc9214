package events

import (
	"github.com/lotusmail/lotus/folder"
	"github.com/lotusmail/lotus/message"
)

// FoldersResolved is published after a folder listing has been applied to the tree.
// Roots is a copy that the receiver may keep.
type FoldersResolved struct {
	eventBase

	Roots    []*folder.Root
	Listed   int
	Resolved int
}

// MessagesFetched is published when a fetch response has been merged into the cache.
type MessagesFetched struct {
	eventBase

	Path     string
	Count    int
	Messages []*message.Message
}
