package lotus

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lotusmail/lotus/async"
	"github.com/lotusmail/lotus/message"
	"github.com/lotusmail/lotus/profiling"
	"github.com/lotusmail/lotus/reporter"
	"github.com/lotusmail/lotus/version"
)

// Option represents a type that can be used to configure the client.
type Option interface {
	config(*clientBuilder)
}

// WithToken sets the token sent to the gateway when the connection opens.
func WithToken(token string) Option {
	return &withToken{
		token: token,
	}
}

type withToken struct {
	token string
}

func (opt withToken) config(builder *clientBuilder) {
	builder.token = opt.token
}

// WithCacheTTL sets how long fetched messages are served from the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return &withCacheTTL{
		ttl: ttl,
	}
}

type withCacheTTL struct {
	ttl time.Duration
}

func (opt withCacheTTL) config(builder *clientBuilder) {
	builder.cacheTTL = opt.ttl
}

// WithClock replaces the clock used for cache expiry and sync tokens.
func WithClock(clock message.Clock) Option {
	return &withClock{
		clock: clock,
	}
}

type withClock struct {
	clock message.Clock
}

func (opt withClock) config(builder *clientBuilder) {
	builder.clock = opt.clock
}

// WithWireLogger instructs the client to write incoming and outgoing frames to the given io.Writers.
func WithWireLogger(in, out io.Writer) Option {
	return &withWireLogger{
		in:  in,
		out: out,
	}
}

type withWireLogger struct {
	in, out io.Writer
}

func (opt withWireLogger) config(builder *clientBuilder) {
	builder.inLogger = opt.in
	builder.outLogger = opt.out
}

// WithPanicHandler recovers panics in the client's goroutines and hands them to the given handler.
// Without it, a panic crashes the program.
func WithPanicHandler(panicHandler async.PanicHandler) Option {
	return &withPanicHandler{
		panicHandler: panicHandler,
	}
}

type withPanicHandler struct {
	panicHandler async.PanicHandler
}

func (opt withPanicHandler) config(builder *clientBuilder) {
	builder.panicHandler = opt.panicHandler
}

// WithReporter sets the reporter notified of unexpected conditions, such as folders that cannot be placed in the tree.
func WithReporter(reporter reporter.Reporter) Option {
	return &withReporter{
		reporter: reporter,
	}
}

type withReporter struct {
	reporter reporter.Reporter
}

func (opt withReporter) config(builder *clientBuilder) {
	builder.reporter = opt.reporter
}

// WithDialer sets the WebSocket dialer, e.g. to configure TLS or a proxy.
func WithDialer(dialer *websocket.Dialer) Option {
	return &withDialer{
		dialer: dialer,
	}
}

type withDialer struct {
	dialer *websocket.Dialer
}

func (opt withDialer) config(builder *clientBuilder) {
	builder.dialer = opt.dialer
}

// WithHeader adds HTTP headers to the WebSocket handshake.
func WithHeader(header http.Header) Option {
	return &withHeader{
		header: header,
	}
}

type withHeader struct {
	header http.Header
}

func (opt withHeader) config(builder *clientBuilder) {
	for key, values := range opt.header {
		builder.header[http.CanonicalHeaderKey(key)] = values
	}
}

// WithVersionInfo sets how the client introduces itself in the User-Agent header of the handshake.
func WithVersionInfo(vmajor, vminor, vpatch int, name, vendor, supportURL string) Option {
	return &withVersionInfo{
		versionInfo: version.Info{
			Name: name,
			Version: version.Version{
				Major: vmajor,
				Minor: vminor,
				Patch: vpatch,
			},
			Vendor:     vendor,
			SupportURL: supportURL,
		},
	}
}

type withVersionInfo struct {
	versionInfo version.Info
}

func (opt withVersionInfo) config(builder *clientBuilder) {
	builder.versionInfo = opt.versionInfo
}

// WithProfiler allows a specific ProfilerBuilder to be set for the client's connections.
func WithProfiler(builder profiling.ProfilerBuilder) Option {
	return &withProfiler{
		builder: builder,
	}
}

type withProfiler struct {
	builder profiling.ProfilerBuilder
}

func (opt withProfiler) config(builder *clientBuilder) {
	builder.profilerBuilder = opt.builder
}
