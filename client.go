package lotus

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/lotusmail/lotus/async"
	"github.com/lotusmail/lotus/events"
	"github.com/lotusmail/lotus/folder"
	"github.com/lotusmail/lotus/internal/queue"
	"github.com/lotusmail/lotus/internal/transport"
	"github.com/lotusmail/lotus/internal/wire"
	"github.com/lotusmail/lotus/logging"
	"github.com/lotusmail/lotus/message"
	"github.com/lotusmail/lotus/profiling"
	"github.com/lotusmail/lotus/version"
	"github.com/lotusmail/lotus/wait"
	"github.com/lotusmail/lotus/watcher"
)

// Client keeps a folder tree and a message cache in sync with one gateway connection.
//
// The folder engine and the message coordinator are only touched by the dispatcher goroutine, which runs the
// closures of queue one at a time. Every public method either enqueues work or waits for a closure to report back.
type Client struct {
	url       string
	token     string
	header    http.Header
	dialer    *websocket.Dialer
	sessionID string

	// inLogger and outLogger are used to log incoming and outgoing frames.
	inLogger, outLogger io.Writer

	conn       *transport.Conn
	connecting bool
	connLock   sync.Mutex

	// Owned by the dispatcher.
	folders  *folder.Engine
	messages *message.Coordinator
	listed   bool
	profiler profiling.Profiler

	profilers   profiling.ProfilerBuilder
	versionInfo version.Info

	queue *queue.QueuedChannel[func()]

	// watchers holds streams of events.
	watchers     []*watcher.Watcher[events.Event]
	watchersLock sync.RWMutex

	panicHandler async.PanicHandler
	wg           *wait.Group

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    bool
	closeLock sync.RWMutex

	log *logrus.Entry
}

// New creates a client of the gateway at the given ws:// or wss:// URL. Nothing is sent until Connect is called.
func New(url string, withOpt ...Option) *Client {
	builder := newBuilder()

	for _, opt := range withOpt {
		opt.config(builder)
	}

	client := builder.build(url)

	client.wg.Go(func() {
		logging.DoAnnotate(client.ctx, func(context.Context) {
			client.dispatch()
		}, logging.Labels{"session": client.sessionID, "role": "dispatcher"})
	})

	return client
}

// SessionID identifies the client in logs and wire logs.
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) GetVersionInfo() version.Info {
	return c.versionInfo
}

// Connect dials the gateway and sends the token. Folders are listed as soon as the gateway accepts the token;
// watch for events.FoldersResolved to know when the tree is ready.
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.connLock.Lock()

	if c.conn != nil || c.connecting {
		c.connLock.Unlock()
		return ErrAlreadyConnected
	}

	c.connecting = true
	c.connLock.Unlock()

	conn, err := c.dial(ctx)

	c.connLock.Lock()
	defer c.connLock.Unlock()

	c.connecting = false

	if err != nil {
		return err
	}

	if c.isClosed() {
		if err := conn.Close(); err != nil {
			c.log.WithError(err).Debug("Failed to close connection")
		}

		return ErrClosed
	}

	c.conn = conn

	profiler := c.profilers.New()

	c.queue.Enqueue(func() { c.profiler = profiler })

	c.publish(events.Connected{SessionID: c.sessionID, URL: c.url})

	c.wg.Go(func() {
		logging.DoAnnotate(c.ctx, func(context.Context) {
			c.read(conn)
		}, logging.Labels{"session": c.sessionID, "role": "reader"})
	})

	return nil
}

func (c *Client) dial(ctx context.Context) (*transport.Conn, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	conn, err := transport.Dial(ctx, c.dialer, c.url, c.header, c.sessionID)
	if err != nil {
		return nil, err
	}

	if c.inLogger != nil {
		conn.SetIncomingLogger(c.inLogger)
	}

	if c.outLogger != nil {
		conn.SetOutgoingLogger(c.outLogger)
	}

	if err := conn.Send(&wire.Auth{Token: c.token}); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			c.log.WithError(closeErr).Debug("Failed to close connection")
		}

		return nil, err
	}

	return conn, nil
}

// Fetch returns the messages of a folder. A fresh cache resolves the result immediately; otherwise the result
// resolves when the gateway answers, fails if the request cannot be sent, or fails with ErrClosed when the
// connection goes away first. Fetch never blocks.
func (c *Client) Fetch(path string, start, end, limit int) *message.Result {
	return c.fetch(message.Request{Path: path, Start: start, End: end, Limit: limit})
}

// FetchFolder fetches the first page of a folder, as done when a folder is opened.
func (c *Client) FetchFolder(path string) *message.Result {
	return c.fetch(message.FolderRequest(path))
}

func (c *Client) fetch(req message.Request) *message.Result {
	res := message.NewResult()

	if !c.queue.Enqueue(func() { c.messages.FetchInto(req, res) }) {
		return message.NewFailedResult(ErrClosed)
	}

	return res
}

// Folders returns a copy of the folder tree, one root per role in display order.
func (c *Client) Folders(ctx context.Context) ([]*folder.Root, error) {
	return call(ctx, c, func() []*folder.Root {
		return c.folders.Clone()
	})
}

// Cached returns what the cache holds for a folder, without asking the gateway and regardless of expiry.
func (c *Client) Cached(ctx context.Context, path string) ([]*message.Message, time.Time, bool, error) {
	type cached struct {
		messages []*message.Message
		expires  time.Time
		ok       bool
	}

	res, err := call(ctx, c, func() cached {
		messages, expires, ok := c.messages.Cached(path)
		return cached{messages: messages, expires: expires, ok: ok}
	})
	if err != nil {
		return nil, time.Time{}, false, err
	}

	return res.messages, res.expires, res.ok, nil
}

// Pending returns the number of fetches still waiting for the gateway.
func (c *Client) Pending(ctx context.Context) (int, error) {
	return call(ctx, c, c.messages.Pending)
}

// AddWatcher adds a new watcher which watches events of the given types.
// If no types are specified, the watcher watches all events. The channel is closed when the client is.
func (c *Client) AddWatcher(ofType ...events.Event) <-chan events.Event {
	c.watchersLock.Lock()
	defer c.watchersLock.Unlock()

	watcher := watcher.New(c.panicHandler, ofType...)

	if c.isClosed() {
		watcher.Close()
	} else {
		c.watchers = append(c.watchers, watcher)
	}

	return watcher.GetChannel()
}

// RemoveWatcher removes the watcher and closes its channel.
func (c *Client) RemoveWatcher(ch <-chan events.Event) {
	c.watchersLock.Lock()
	defer c.watchersLock.Unlock()

	c.watchers = xslices.Filter(c.watchers, func(w *watcher.Watcher[events.Event]) bool {
		if w.GetChannel() != ch {
			return true
		}

		w.Close()

		return false
	})
}

// Close closes the connection and fails every outstanding fetch with ErrClosed.
// Watchers are closed once the remaining events have been published.
func (c *Client) Close() error {
	var err error

	c.closeOnce.Do(func() {
		c.closeLock.Lock()
		c.closed = true
		c.closeLock.Unlock()

		c.connLock.Lock()
		conn := c.conn
		c.connLock.Unlock()

		if conn != nil {
			err = conn.Close()
		}

		c.queue.Enqueue(func() {
			c.messages.FailPending(ErrClosed)
			c.collectProfiler()
		})
		c.queue.Close()

		c.wg.Wait()
		c.cancel()

		c.watchersLock.Lock()
		defer c.watchersLock.Unlock()

		for _, watcher := range c.watchers {
			watcher.Close()
		}

		c.watchers = nil

		c.log.Debug("Client closed")
	})

	return err
}

func (c *Client) isClosed() bool {
	c.closeLock.RLock()
	defer c.closeLock.RUnlock()

	return c.closed
}

func (c *Client) publish(event events.Event) {
	c.watchersLock.RLock()
	defer c.watchersLock.RUnlock()

	for _, watcher := range c.watchers {
		if watcher.IsWatching(event) {
			if ok := watcher.Send(event); !ok {
				c.log.WithField("event", event).Warn("Failed to send event to watcher")
			}
		}
	}
}

// call runs fn on the dispatcher and waits for its result.
func call[T any](ctx context.Context, c *Client, fn func() T) (T, error) {
	var zero T

	resCh := make(chan T, 1)

	if !c.queue.Enqueue(func() { resCh <- fn() }) {
		return zero, ErrClosed
	}

	select {
	case res := <-resCh:
		return res, nil

	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// fetchSender sends fetch requests over the client's current connection.
type fetchSender struct {
	client *Client
}

func (s *fetchSender) SendFetch(sync int64, req message.Request) error {
	s.client.connLock.Lock()
	conn := s.client.conn
	s.client.connLock.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	if err := conn.Send(wire.NewFetchRequest(wire.FetchArgs{
		Sync:  sync,
		Path:  req.Path,
		Start: req.Start,
		End:   req.End,
		Limit: req.Limit,
	})); err != nil {
		return err
	}

	s.client.profiler.Start(profiling.RequestTypeFetch)

	return nil
}
