// Package wire defines the JSON frames exchanged with the mail gateway over the WebSocket.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
)

const (
	TypeList  = "list"
	TypeFetch = "fetch"

	ActionList  = "list"
	ActionFetch = "fetch"

	AuthOK = "ok"
)

var (
	ErrNotJSON        = errors.New("frame is not JSON")
	ErrMalformedFrame = errors.New("malformed frame")
)

// Frame is any message received from the gateway. Which fields are set depends on the frame:
// authentication replies only carry Auth, list and fetch replies carry Type and Value.
type Frame struct {
	Auth  string          `json:"auth,omitempty"`
	Type  string          `json:"type,omitempty"`
	Sync  int64           `json:"sync,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Decode parses one frame. The gateway also sends plain text notices (e.g. "Invalid token"); those fail with
// ErrNotJSON. JSON that does not have the shape of a frame fails with ErrMalformedFrame.
func Decode(b []byte) (*Frame, error) {
	if !json.Valid(b) {
		return nil, ErrNotJSON
	}

	var frame Frame

	if err := json.Unmarshal(b, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	return &frame, nil
}

// Folders decodes the value of a list frame.
func (f *Frame) Folders() ([]*imap.MailboxInfo, error) {
	var folders []*imap.MailboxInfo

	if err := f.decodeValue(&folders); err != nil {
		return nil, err
	}

	return folders, nil
}

// Messages decodes the value of a fetch frame. Messages are decoded one by one: those that fail are left out and
// their errors returned in skipped. err is only set, wrapping ErrMalformedFrame, when the value is not a list.
func (f *Frame) Messages() (messages []*Message, skipped []error, err error) {
	var raw []json.RawMessage

	if err := f.decodeValue(&raw); err != nil {
		return nil, nil, err
	}

	for idx, b := range raw {
		var msg *Message

		if err := json.Unmarshal(b, &msg); err != nil {
			skipped = append(skipped, fmt.Errorf("message %v: %w", idx, err))
			continue
		}

		if msg != nil {
			messages = append(messages, msg)
		}
	}

	return messages, skipped, nil
}

func (f *Frame) decodeValue(v any) error {
	if len(f.Value) == 0 {
		return nil
	}

	if err := json.Unmarshal(f.Value, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	return nil
}

// Message is one fetched message as the gateway serializes it.
type Message struct {
	Body          json.RawMessage `json:"$Body,omitempty"`
	BodyStructure json.RawMessage `json:"BodyStructure,omitempty"`
	Envelope      *imap.Envelope
	Flags         []string
	InternalDate  time.Time
	Items         []string
	SeqNum        uint32
	Size          uint32
	Uid           uint32
}

// Auth is the first message sent on a new connection.
type Auth struct {
	Token string `json:"token"`
}

// Request asks the gateway to run an IMAP command.
type Request struct {
	Action string `json:"action"`
	Args   any    `json:"args"`
}

// FetchArgs are the arguments of a fetch request.
type FetchArgs struct {
	Sync  int64  `json:"sync"`
	Path  string `json:"path"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Limit int    `json:"limit"`
}

// NewListRequest asks for every folder of the account.
func NewListRequest() *Request {
	return &Request{Action: ActionList, Args: []string{"", "*"}}
}

func NewFetchRequest(args FetchArgs) *Request {
	return &Request{Action: ActionFetch, Args: args}
}
