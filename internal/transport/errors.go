package transport

import "errors"

var ErrClosed = errors.New("connection closed by gateway")
