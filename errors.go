// Package lotus is a webmail client core: it keeps a folder tree and a message cache in sync with a mail gateway.
package lotus

import (
	"errors"

	"github.com/lotusmail/lotus/internal/transport"
)

var (
	ErrClosed           = errors.New("client closed")
	ErrNotConnected     = errors.New("client not connected")
	ErrAlreadyConnected = errors.New("client already connected")
)

// IsClosed returns true if the error is caused by the client or the gateway closing the connection.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, transport.ErrClosed)
}

// IsNotConnected returns true if the error is ErrNotConnected.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
