// Package transport carries JSON frames between the client and the mail gateway over a WebSocket.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const closeTimeout = time.Second

// Conn is a WebSocket connection to the gateway.
// Reads must come from a single goroutine; Send may be called from any goroutine.
type Conn struct {
	ws        *websocket.Conn
	sessionID string

	writeLock sync.Mutex

	// inLogger and outLogger, if set, receive every frame read and written.
	inLogger, outLogger io.Writer
}

// Dial opens a connection to the gateway at the given ws:// or wss:// URL.
func Dial(ctx context.Context, dialer *websocket.Dialer, url string, header http.Header, sessionID string) (*Conn, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, res, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if res != nil {
			return nil, fmt.Errorf("failed to dial %v (status %v): %w", url, res.Status, err)
		}

		return nil, fmt.Errorf("failed to dial %v: %w", url, err)
	}

	logrus.WithField("session", sessionID).WithField("url", url).Debug("Connected to gateway")

	return &Conn{ws: ws, sessionID: sessionID}, nil
}

func (c *Conn) SetIncomingLogger(w io.Writer) {
	if w == nil {
		panic("setting a nil writer")
	}

	c.inLogger = w
}

func (c *Conn) SetOutgoingLogger(w io.Writer) {
	if w == nil {
		panic("setting a nil writer")
	}

	c.outLogger = w
}

// Send writes v as one JSON text frame.
func (c *Conn) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if c.outLogger != nil {
		writeLog(c.outLogger, "C", c.sessionID, b)
	}

	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Read blocks until the next frame arrives. It returns ErrClosed once the gateway closed the connection normally.
func (c *Conn) Read() ([]byte, error) {
	_, b, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}

		return nil, err
	}

	if c.inLogger != nil {
		writeLog(c.inLogger, "S", c.sessionID, b)
	}

	return b, nil
}

// Close says goodbye to the gateway and closes the connection.
func (c *Conn) Close() error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		logrus.WithError(err).WithField("session", c.sessionID).Debug("Failed to send close frame")
	}

	return c.ws.Close()
}
