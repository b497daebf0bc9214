package lotus

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lotusmail/lotus/events"
	"github.com/lotusmail/lotus/internal/transport"
	"github.com/lotusmail/lotus/internal/wire"
	"github.com/lotusmail/lotus/profiling"
)

// dispatch runs queued work until the queue is closed and drained.
func (c *Client) dispatch() {
	for fn := range c.queue.GetChannel() {
		fn()
	}
}

// read forwards every frame of the connection to the dispatcher until the connection fails.
func (c *Client) read(conn *transport.Conn) {
	for {
		b, err := conn.Read()
		if err != nil {
			c.queue.Enqueue(func() { c.handleDisconnect(conn, err) })
			return
		}

		if !c.queue.Enqueue(func() { c.handleFrame(b) }) {
			return
		}
	}
}

func (c *Client) handleFrame(b []byte) {
	frame, err := wire.Decode(b)
	if errors.Is(err, wire.ErrNotJSON) {
		c.log.WithField("notice", string(b)).Warn("Received notice from gateway")
		c.publish(events.ServerNotice{Text: string(b)})

		return
	} else if err != nil {
		c.log.WithError(err).Warn("Dropping malformed frame")
		return
	}

	if frame.Auth == wire.AuthOK {
		c.handleAuth()
	}

	switch frame.Type {
	case wire.TypeList:
		c.handleList(frame)

	case wire.TypeFetch:
		c.handleFetch(frame)

	case "":

	default:
		c.log.WithField("type", frame.Type).Debug("Ignoring frame of unknown type")
	}
}

func (c *Client) handleAuth() {
	c.publish(events.Authenticated{SessionID: c.sessionID})

	c.connLock.Lock()
	conn := c.conn
	c.connLock.Unlock()

	if c.listed || conn == nil {
		return
	}

	c.listed = true

	if err := conn.Send(wire.NewListRequest()); err != nil {
		c.log.WithError(err).Warn("Failed to request folder list")
		return
	}

	c.profiler.Start(profiling.RequestTypeList)
}

func (c *Client) handleList(frame *wire.Frame) {
	entries, err := frame.Folders()
	if err != nil {
		c.log.WithError(err).Warn("Failed to decode folder list")
		return
	}

	resolved := c.folders.ResolveAll(c.ctx, entries)

	c.profiler.Stop(profiling.RequestTypeList)

	c.log.WithFields(logrus.Fields{
		"listed":   len(entries),
		"resolved": resolved,
	}).Debug("Resolved folders")

	c.publish(events.FoldersResolved{
		Roots:    c.folders.Clone(),
		Listed:   len(entries),
		Resolved: resolved,
	})
}

func (c *Client) handleFetch(frame *wire.Frame) {
	log := c.log.WithField("sync", frame.Sync)

	raw, skipped, err := frame.Messages()
	if err != nil {
		log.WithError(err).Warn("Failed to decode fetched messages")

		if _, ok := c.messages.Fail(frame.Sync, err); ok {
			c.profiler.Stop(profiling.RequestTypeFetch)
		}

		return
	}

	for _, err := range skipped {
		log.WithError(err).Warn("Skipping undecodable message")
	}

	messages := c.messages.Convert(raw)

	path, ok := c.messages.Deliver(frame.Sync, messages)
	if !ok {
		return
	}

	c.profiler.Stop(profiling.RequestTypeFetch)

	c.publish(events.MessagesFetched{Path: path, Count: len(messages), Messages: messages})
}

// handleDisconnect forgets the connection so that Connect may be called again, and fails every outstanding fetch.
// Fresh cache entries keep being served.
func (c *Client) handleDisconnect(conn *transport.Conn, err error) {
	if c.isClosed() {
		c.log.WithError(err).Debug("Connection closed")
	} else {
		c.log.WithError(err).Warn("Connection lost")
	}

	c.connLock.Lock()

	if c.conn == conn {
		c.conn = nil
	}

	c.connLock.Unlock()

	if err := conn.Close(); err != nil {
		c.log.WithError(err).Debug("Failed to close connection")
	}

	c.listed = false

	c.collectProfiler()

	c.messages.FailPending(fmt.Errorf("%w: %v", ErrClosed, err))

	c.publish(events.Disconnected{SessionID: c.sessionID, Err: err})
}

func (c *Client) collectProfiler() {
	if _, ok := c.profiler.(*profiling.NullProfiler); ok {
		return
	}

	c.profilers.Collect(c.profiler)
	c.profiler = &profiling.NullProfiler{}
}
