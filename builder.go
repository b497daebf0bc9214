package lotus

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/lotusmail/lotus/async"
	"github.com/lotusmail/lotus/events"
	"github.com/lotusmail/lotus/folder"
	"github.com/lotusmail/lotus/internal/queue"
	"github.com/lotusmail/lotus/message"
	"github.com/lotusmail/lotus/profiling"
	"github.com/lotusmail/lotus/reporter"
	"github.com/lotusmail/lotus/version"
	"github.com/lotusmail/lotus/wait"
	"github.com/lotusmail/lotus/watcher"
)

type clientBuilder struct {
	token           string
	cacheTTL        time.Duration
	clock           message.Clock
	inLogger        io.Writer
	outLogger       io.Writer
	panicHandler    async.PanicHandler
	reporter        reporter.Reporter
	dialer          *websocket.Dialer
	header          http.Header
	versionInfo     version.Info
	profilerBuilder profiling.ProfilerBuilder
}

func newBuilder() *clientBuilder {
	return &clientBuilder{
		cacheTTL:        message.DefaultTTL,
		panicHandler:    async.NoopPanicHandler{},
		reporter:        reporter.NullReporter{},
		dialer:          websocket.DefaultDialer,
		header:          make(http.Header),
		versionInfo:     version.Default(),
		profilerBuilder: &profiling.NullProfilerBuilder{},
	}
}

func (builder *clientBuilder) build(url string) *Client {
	sessionID := uuid.NewString()

	ctx, cancel := context.WithCancel(reporter.NewContextWithReporter(context.Background(), builder.reporter))

	var panicHandler async.PanicHandler

	switch builder.panicHandler.(type) {
	case nil, async.NoopPanicHandler, *async.NoopPanicHandler:
		panicHandler = async.NoopPanicHandler{}

	default:
		panicHandler = &reportingPanicHandler{ctx: ctx, sessionID: sessionID, next: builder.panicHandler}
	}

	header := builder.header.Clone()

	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", builder.versionInfo.UserAgent())
	}

	client := &Client{
		url:          url,
		token:        builder.token,
		header:       header,
		dialer:       builder.dialer,
		sessionID:    sessionID,
		inLogger:     builder.inLogger,
		outLogger:    builder.outLogger,
		folders:      folder.NewEngine(),
		queue:        queue.NewQueuedChannel[func()](0, 16, panicHandler),
		watchers:     make([]*watcher.Watcher[events.Event], 0),
		panicHandler: panicHandler,
		versionInfo:  builder.versionInfo,
		profilers:    builder.profilerBuilder,
		profiler:     &profiling.NullProfiler{},
		wg:           wait.NewGroup(panicHandler),
		ctx:          ctx,
		cancel:       cancel,
		log:          logrus.WithField("session", sessionID),
	}

	client.messages = message.NewCoordinator(&fetchSender{client: client}, builder.clock, builder.cacheTTL)

	return client
}

// reportingPanicHandler reports recovered panics before passing them on.
type reportingPanicHandler struct {
	ctx       context.Context
	sessionID string
	next      async.PanicHandler
}

func (h *reportingPanicHandler) HandlePanic(r any) {
	logrus.WithField("session", h.sessionID).WithField("panic", r).Error("Recovered from panic")

	reporter.Exception(h.ctx, r)

	h.next.HandlePanic(r)
}
