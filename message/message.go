// Package message caches the messages of each folder and pairs fetch requests with their responses.
package message

import (
	"encoding/json"
	"time"

	"github.com/emersion/go-imap"

	lotusimap "github.com/lotusmail/lotus/imap"
	"github.com/lotusmail/lotus/internal/wire"
)

// Message is the cached form of one fetched message.
// A message is never updated in place: fetching it again replaces it.
type Message struct {
	SeqNum       uint32
	UID          uint32
	Size         uint32
	InternalDate time.Time
	Envelope     *imap.Envelope
	Flags        lotusimap.AttrSet
	Items        []string

	// Body and BodyStructure are kept as the gateway sent them.
	Body          json.RawMessage
	BodyStructure json.RawMessage

	Expires time.Time
}

func newMessage(raw *wire.Message, expires time.Time) *Message {
	return &Message{
		SeqNum:        raw.SeqNum,
		UID:           raw.Uid,
		Size:          raw.Size,
		InternalDate:  raw.InternalDate,
		Envelope:      raw.Envelope,
		Flags:         lotusimap.NewAttrSet(raw.Flags...),
		Items:         raw.Items,
		Body:          raw.Body,
		BodyStructure: raw.BodyStructure,
		Expires:       expires,
	}
}

// Subject returns the envelope subject, if any.
func (m *Message) Subject() string {
	if m.Envelope == nil {
		return ""
	}

	return m.Envelope.Subject
}

// From returns the first sender address, if any.
func (m *Message) From() string {
	if m.Envelope == nil || len(m.Envelope.From) == 0 {
		return ""
	}

	from := m.Envelope.From[0]

	if from.PersonalName != "" {
		return from.PersonalName + " <" + from.Address() + ">"
	}

	return from.Address()
}

func (m *Message) HasFlag(flag string) bool {
	return m.Flags.Contains(flag)
}
