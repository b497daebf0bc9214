package message

import (
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// partition holds the cached messages of one folder. The whole partition expires at once.
type partition struct {
	expires time.Time
	store   map[uint32]*Message
}

func newPartition(expires time.Time) *partition {
	return &partition{
		expires: expires,
		store:   make(map[uint32]*Message),
	}
}

// merge stores the messages by sequence number, replacing messages with the same number and keeping the rest.
func (p *partition) merge(messages []*Message) {
	for _, message := range messages {
		p.store[message.SeqNum] = message
	}
}

func (p *partition) fresh(now time.Time) bool {
	return now.Before(p.expires)
}

// messages returns every cached message ordered by sequence number.
func (p *partition) messages() []*Message {
	messages := maps.Values(p.store)

	slices.SortFunc(messages, func(a, b *Message) bool {
		return a.SeqNum < b.SeqNum
	})

	return messages
}
