package events

type Connected struct {
	eventBase

	SessionID string
	URL       string
}

// Authenticated is published when the gateway accepts the token.
type Authenticated struct {
	eventBase

	SessionID string
}

// ServerNotice carries a plain-text frame, such as a rejected token.
type ServerNotice struct {
	eventBase

	Text string
}

type Disconnected struct {
	eventBase

	SessionID string
	Err       error
}
