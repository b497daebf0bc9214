package message

import (
	"fmt"
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/lotusmail/lotus/internal/wire"
)

// DefaultTTL is how long fetched messages are served from the cache.
const DefaultTTL = 2 * time.Minute

// Request describes a window of messages to fetch from a folder.
// The window is only a hint for the server: a fresh cache is served whole, whatever window is asked for.
type Request struct {
	Path              string
	Start, End, Limit int
}

// FolderRequest is the request used to open a folder.
func FolderRequest(path string) Request {
	return Request{Path: path, Start: 1, End: 100, Limit: 100}
}

// Sender sends fetch requests to the server.
//
//go:generate mockgen -destination=mocks/sender.go -package=mocks . Sender
type Sender interface {
	SendFetch(sync int64, req Request) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type pending struct {
	path   string
	result *Result
}

// Coordinator owns one cache partition per folder and every fetch still waiting for its response.
// It is not safe for concurrent use; the caller serializes all calls.
type Coordinator struct {
	sender Sender
	clock  Clock
	ttl    time.Duration
	tokens tokenSource

	// pending maps the sync token of each outstanding fetch to the fetch. Entries are removed exactly once.
	pending map[int64]*pending

	partitions map[string]*partition
}

// NewCoordinator creates a coordinator. A nil clock uses the system clock; a non-positive ttl uses DefaultTTL.
func NewCoordinator(sender Sender, clock Clock, ttl time.Duration) *Coordinator {
	if clock == nil {
		clock = systemClock{}
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Coordinator{
		sender:     sender,
		clock:      clock,
		ttl:        ttl,
		tokens:     tokenSource{clock: clock},
		pending:    make(map[int64]*pending),
		partitions: make(map[string]*partition),
	}
}

// Fetch returns the messages of a folder. See FetchInto.
func (c *Coordinator) Fetch(req Request) *Result {
	res := NewResult()

	c.FetchInto(req, res)

	return res
}

// FetchInto resolves res with the cached messages of the folder if they are still fresh.
// Otherwise it sends a fetch request and res stays unresolved until Deliver receives the matching response.
// A request that cannot be sent resolves res with the error.
func (c *Coordinator) FetchInto(req Request, res *Result) {
	if part, ok := c.partitions[req.Path]; ok && part.fresh(c.clock.Now()) {
		res.resolve(part.messages(), nil)
		return
	}

	sync := c.tokens.next()

	c.pending[sync] = &pending{path: req.Path, result: res}

	if err := c.sender.SendFetch(sync, req); err != nil {
		logrus.WithError(err).WithField("path", req.Path).Warn("Failed to send fetch request")

		delete(c.pending, sync)

		res.resolve(nil, fmt.Errorf("failed to send fetch request for %q: %w", req.Path, err))
	}
}

// Deliver handles the response to the fetch with the given sync token. The messages are merged into the folder's
// partition and the fetch resolves with everything cached for the folder. Responses to unknown tokens (late,
// duplicated, or from a previous connection) are ignored. It returns the folder the response was for, and false
// if it was ignored.
func (c *Coordinator) Deliver(sync int64, messages []*Message) (string, bool) {
	call, ok := c.pending[sync]
	if !ok {
		logrus.WithField("sync", sync).Debug("Ignoring fetch response with unknown sync token")
		return "", false
	}

	delete(c.pending, sync)

	part, ok := c.partitions[call.path]
	if !ok {
		part = newPartition(c.clock.Now().Add(c.ttl))
		c.partitions[call.path] = part
	}

	part.merge(messages)

	call.result.resolve(part.messages(), nil)

	return call.path, true
}

// Fail resolves the fetch with the given sync token with err. It is used when the matching response arrived but
// could not be used. Like Deliver, it ignores unknown tokens and returns the folder of the fetch.
func (c *Coordinator) Fail(sync int64, err error) (string, bool) {
	call, ok := c.pending[sync]
	if !ok {
		return "", false
	}

	delete(c.pending, sync)

	call.result.resolve(nil, err)

	return call.path, true
}

// Convert turns messages received from the server into cache entries expiring one TTL from now.
func (c *Coordinator) Convert(raw []*wire.Message) []*Message {
	expires := c.clock.Now().Add(c.ttl)

	return xslices.Map(raw, func(msg *wire.Message) *Message {
		return newMessage(msg, expires)
	})
}

// Cached returns the cached messages of a folder and when they expire.
func (c *Coordinator) Cached(path string) ([]*Message, time.Time, bool) {
	part, ok := c.partitions[path]
	if !ok {
		return nil, time.Time{}, false
	}

	return part.messages(), part.expires, true
}

// Paths returns the folders that have a cache partition.
func (c *Coordinator) Paths() []string {
	paths := maps.Keys(c.partitions)

	slices.Sort(paths)

	return paths
}

// Pending returns the number of fetches waiting for a response.
func (c *Coordinator) Pending() int {
	return len(c.pending)
}

// FailPending resolves every outstanding fetch with err, e.g. when the connection they were sent on is gone.
// Responses that arrive later are ignored; cached messages are kept.
func (c *Coordinator) FailPending(err error) {
	for sync, call := range c.pending {
		call.result.resolve(nil, err)
		delete(c.pending, sync)
	}
}
