package lotus_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lotusmail/lotus"
	"github.com/lotusmail/lotus/events"
	"github.com/lotusmail/lotus/folder"
	lotusimap "github.com/lotusmail/lotus/imap"
	"github.com/lotusmail/lotus/internal/testserver"
	"github.com/lotusmail/lotus/internal/testutil"
	"github.com/lotusmail/lotus/internal/wire"
	"github.com/lotusmail/lotus/message"
	"github.com/lotusmail/lotus/profiling"
)

const testToken = "secret"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, server *testserver.Server, withOpt ...lotus.Option) *lotus.Client {
	t.Helper()

	client := lotus.New(server.URL(), append([]lotus.Option{lotus.WithToken(testToken)}, withOpt...)...)

	t.Cleanup(func() { _ = client.Close() })

	return client
}

func newTestServer(t *testing.T) *testserver.Server {
	t.Helper()

	server := testserver.New(testToken)

	t.Cleanup(server.Close)

	return server
}

// connect connects the client and waits for the folder tree to be resolved.
func connect(t *testing.T, client *lotus.Client) events.FoldersResolved {
	t.Helper()

	resolvedCh := client.AddWatcher(events.FoldersResolved{})
	defer client.RemoveWatcher(resolvedCh)

	require.NoError(t, client.Connect(context.Background()))

	return waitFor[events.FoldersResolved](t, resolvedCh)
}

func waitFor[T events.Event](t *testing.T, eventCh <-chan events.Event) T {
	t.Helper()

	select {
	case event := <-eventCh:
		res, ok := event.(T)
		require.True(t, ok, "unexpected event %#v", event)

		return res

	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %T", *new(T))
	}

	return *new(T)
}

func wait(t *testing.T, res *message.Result) []*message.Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := res.Wait(ctx)
	require.NoError(t, err)

	return messages
}

func newMessage(seq uint32, subject string) *wire.Message {
	return &wire.Message{
		SeqNum:   seq,
		Uid:      seq + 100,
		Envelope: &imap.Envelope{Subject: subject},
		Flags:    []string{imap.SeenFlag},
	}
}

func subjects(messages []*message.Message) []string {
	res := make([]string, 0, len(messages))

	for _, msg := range messages {
		res = append(res, msg.Subject())
	}

	return res
}

func childNames(node *folder.Node) []string {
	res := make([]string, 0, len(node.Children))

	for _, child := range node.Children {
		res = append(res, child.Name)
	}

	return res
}

func TestClient_ResolvesFolders(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	resolved := connect(t, client)

	require.Equal(t, 13, resolved.Listed)
	require.Equal(t, 12, resolved.Resolved)
	require.Equal(t, 1, server.Lists())

	roots, err := client.Folders(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, len(lotusimap.Roles()))

	inbox := roots[lotusimap.RoleInbox]
	require.Equal(t, "INBOX", inbox.Path)
	require.Equal(t, []string{"status", "hello", "hi", "test/sub/folder/something"}, childNames(&inbox.Node))

	archive := roots[lotusimap.RoleArchive]
	require.Equal(t, "Archive", archive.Path)
	require.Equal(t, []string{"2022", "2023"}, childNames(&archive.Node))

	for _, root := range roots[lotusimap.RoleDrafts:] {
		require.Equal(t, root.Role.String(), root.Path, "root %v", root.Role)
	}
}

func TestClient_Fetch(t *testing.T) {
	server := newTestServer(t)
	server.SetMessages("INBOX", newMessage(1, "hello"), newMessage(2, "world"))

	client := newTestClient(t, server)

	fetchedCh := client.AddWatcher(events.MessagesFetched{})

	connect(t, client)

	messages := wait(t, client.FetchFolder("INBOX"))
	require.Equal(t, []string{"hello", "world"}, subjects(messages))
	require.True(t, messages[0].HasFlag(imap.SeenFlag))
	require.Equal(t, uint32(101), messages[0].UID)

	fetched := waitFor[events.MessagesFetched](t, fetchedCh)
	require.Equal(t, "INBOX", fetched.Path)
	require.Equal(t, 2, fetched.Count)

	fetches := server.Fetches()
	require.Len(t, fetches, 1)
	require.Equal(t, "INBOX", fetches[0].Path)
	require.Equal(t, 1, fetches[0].Start)
	require.Equal(t, 100, fetches[0].End)
	require.Equal(t, 100, fetches[0].Limit)

	// The second fetch is served from the cache.
	require.Equal(t, []string{"hello", "world"}, subjects(wait(t, client.Fetch("INBOX", 1, 10, 10))))
	require.Len(t, server.Fetches(), 1)

	cached, expires, ok, err := client.Cached(context.Background(), "INBOX")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, 2)
	require.True(t, expires.After(time.Now()))
}

func TestClient_CacheExpiry(t *testing.T) {
	server := newTestServer(t)
	server.SetMessages("Sent", newMessage(1, "sent"))

	clock := testutil.FixedClock()

	client := newTestClient(t, server, lotus.WithClock(clock), lotus.WithCacheTTL(time.Minute))

	connect(t, client)

	wait(t, client.FetchFolder("Sent"))

	clock.Advance(59 * time.Second)
	wait(t, client.FetchFolder("Sent"))
	require.Len(t, server.Fetches(), 1)

	clock.Advance(time.Second)
	wait(t, client.FetchFolder("Sent"))
	require.Len(t, server.Fetches(), 2)

	// Tokens stay unique even though the clock barely moved.
	fetches := server.Fetches()
	require.NotEqual(t, fetches[0].Sync, fetches[1].Sync)
}

func TestClient_OutOfOrderResponses(t *testing.T) {
	server := newTestServer(t)
	server.SetMessages("INBOX", newMessage(1, "inbox"))
	server.SetMessages("Archive", newMessage(1, "archive"), newMessage(2, "old"))

	client := newTestClient(t, server)

	connect(t, client)

	server.Hold()

	inbox := client.FetchFolder("INBOX")
	archive := client.FetchFolder("Archive")

	require.Eventually(t, func() bool { return len(server.Fetches()) == 2 }, 5*time.Second, 10*time.Millisecond)
	require.False(t, inbox.Resolved())
	require.False(t, archive.Resolved())

	pending, err := client.Pending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, pending)

	server.Release()

	require.Equal(t, []string{"archive", "old"}, subjects(wait(t, archive)))
	require.Equal(t, []string{"inbox"}, subjects(wait(t, inbox)))
}

func TestClient_UnknownSyncIgnored(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	noticeCh := client.AddWatcher(events.ServerNotice{})

	connect(t, client)

	server.Broadcast([]byte(`{"type":"fetch","sync":42,"value":[{"SeqNum":1,"Uid":1}]}`))
	server.Broadcast([]byte(`done`))

	require.Equal(t, "done", waitFor[events.ServerNotice](t, noticeCh).Text)

	cached, _, ok, err := client.Cached(context.Background(), "INBOX")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, cached)
}

// heldSync fetches a folder while the gateway holds replies and returns the sync token of the request.
func heldSync(t *testing.T, server *testserver.Server, client *lotus.Client, path string) (*message.Result, int64) {
	t.Helper()

	server.Hold()

	res := client.FetchFolder(path)

	require.Eventually(t, func() bool { return len(server.Fetches()) == 1 }, 5*time.Second, 10*time.Millisecond)

	return res, server.Fetches()[0].Sync
}

func TestClient_UndecodableMessagesSkipped(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	connect(t, client)

	res, sync := heldSync(t, server, client, "INBOX")

	server.Broadcast([]byte(fmt.Sprintf(`{"type":"fetch","sync":%d,"value":[
		{"SeqNum":1,"InternalDate":""},
		{"SeqNum":2,"Uid":102,"Envelope":{"Subject":"kept"}}
	]}`, sync)))

	require.Equal(t, []string{"kept"}, subjects(wait(t, res)))

	pending, err := client.Pending(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestClient_UnusableFetchResponseFails(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	connect(t, client)

	res, sync := heldSync(t, server, client, "INBOX")

	server.Broadcast([]byte(fmt.Sprintf(`{"type":"fetch","sync":%d,"value":{"SeqNum":1}}`, sync)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := res.Wait(ctx)
	require.ErrorIs(t, err, wire.ErrMalformedFrame)

	pending, err := client.Pending(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestClient_MalformedFrameDropped(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	noticeCh := client.AddWatcher(events.ServerNotice{})

	connect(t, client)

	server.Broadcast([]byte(`{"type":"list","sync":"7"}`))
	server.Broadcast([]byte(`[1, 2]`))
	server.Broadcast([]byte(`done`))

	// Only the plain text frame is a notice.
	require.Equal(t, "done", waitFor[events.ServerNotice](t, noticeCh).Text)

	folders, err := client.Folders(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, folders)
}

func TestClient_InvalidToken(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server, lotus.WithToken("wrong"))

	eventCh := client.AddWatcher(events.ServerNotice{}, events.Disconnected{})

	require.NoError(t, client.Connect(context.Background()))

	require.Equal(t, "Invalid token", waitFor[events.ServerNotice](t, eventCh).Text)
	require.Error(t, waitFor[events.Disconnected](t, eventCh).Err)

	require.Equal(t, 0, server.Lists())

	// Without a connection, fetches fail right away.
	_, err := client.FetchFolder("INBOX").Wait(context.Background())
	require.True(t, lotus.IsNotConnected(err))
}

func TestClient_AlreadyConnected(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	connect(t, client)

	require.ErrorIs(t, client.Connect(context.Background()), lotus.ErrAlreadyConnected)
}

func TestClient_FetchBeforeConnect(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	_, err := client.FetchFolder("INBOX").Wait(context.Background())
	require.True(t, lotus.IsNotConnected(err))
}

func TestClient_CloseFailsPending(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server)

	eventCh := client.AddWatcher(events.Disconnected{})

	connect(t, client)

	server.Hold()

	res := client.FetchFolder("INBOX")

	require.Eventually(t, func() bool { return len(server.Fetches()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close())

	_, err := res.Wait(context.Background())
	require.True(t, lotus.IsClosed(err))

	// The watcher is closed with the client.
	for range eventCh {
	}

	// Nothing works once closed.
	_, err = client.FetchFolder("INBOX").Wait(context.Background())
	require.ErrorIs(t, err, lotus.ErrClosed)

	_, err = client.Folders(context.Background())
	require.ErrorIs(t, err, lotus.ErrClosed)

	require.ErrorIs(t, client.Connect(context.Background()), lotus.ErrClosed)
}

func TestClient_Reconnect(t *testing.T) {
	server := newTestServer(t)
	server.SetMessages("INBOX", newMessage(1, "hello"))

	client := newTestClient(t, server)

	eventCh := client.AddWatcher(events.Disconnected{})

	connect(t, client)

	wait(t, client.FetchFolder("INBOX"))

	server.Disconnect()

	waitFor[events.Disconnected](t, eventCh)

	// The cache survives the connection.
	require.Equal(t, []string{"hello"}, subjects(wait(t, client.FetchFolder("INBOX"))))

	connect(t, client)

	require.Equal(t, 2, server.Lists())
}

type syncBuffer struct {
	buf  bytes.Buffer
	lock sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.buf.String()
}

func TestClient_WireLogger(t *testing.T) {
	server := newTestServer(t)

	var in, out syncBuffer

	client := newTestClient(t, server, lotus.WithWireLogger(&in, &out))

	connect(t, client)

	require.Contains(t, out.String(), `C[`+client.SessionID()+`]: {"token":"secret"}`)
	require.Contains(t, out.String(), `"action":"list"`)
	require.Contains(t, in.String(), `S[`+client.SessionID()+`]: {"auth":"ok"}`)
	require.True(t, strings.HasSuffix(in.String(), "\n"))
}

type recordingReporter struct {
	lock     sync.Mutex
	messages []string
}

func (r *recordingReporter) ReportMessage(message string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.messages = append(r.messages, message)

	return nil
}

func (r *recordingReporter) ReportMessageWithContext(message string, _ map[string]any) error {
	return r.ReportMessage(message)
}

func (r *recordingReporter) ReportException(any) error {
	return nil
}

func (r *recordingReporter) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.messages)
}

func TestClient_ReportsUnresolvedFolders(t *testing.T) {
	server := newTestServer(t)
	server.SetFolders(
		&imap.MailboxInfo{Name: "INBOX", Delimiter: "/"},
		&imap.MailboxInfo{Name: "Orphan/child", Delimiter: "/"},
	)

	reporter := &recordingReporter{}

	client := newTestClient(t, server, lotus.WithReporter(reporter))

	resolved := connect(t, client)

	require.Equal(t, 2, resolved.Listed)
	require.Equal(t, 1, resolved.Resolved)
	require.Equal(t, 1, reporter.count())
}

func TestClient_UserAgent(t *testing.T) {
	tests := map[string]struct {
		withOpt []lotus.Option
		want    string
	}{
		"default": {
			want: "lotus/0.1.0 (+https://github.com/lotusmail/lotus)",
		},
		"version info": {
			withOpt: []lotus.Option{lotus.WithVersionInfo(1, 2, 3, "webmail", "Example", "")},
			want:    "webmail/1.2.3",
		},
		"header wins": {
			withOpt: []lotus.Option{
				lotus.WithVersionInfo(1, 2, 3, "webmail", "Example", ""),
				lotus.WithHeader(http.Header{"User-Agent": []string{"custom"}}),
			},
			want: "custom",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			server := newTestServer(t)
			client := newTestClient(t, server, tc.withOpt...)

			connect(t, client)

			require.Equal(t, []string{tc.want}, server.UserAgents())
		})
	}
}

func TestClient_Profiler(t *testing.T) {
	server := newTestServer(t)
	server.SetMessages("INBOX", newMessage(1, "hello"))

	counter := profiling.NewCounter(nil)

	client := newTestClient(t, server, lotus.WithProfiler(&profiling.CounterBuilder{Counter: counter}))

	connect(t, client)

	wait(t, client.FetchFolder("INBOX"))

	// Served from the cache, not sent.
	wait(t, client.FetchFolder("INBOX"))

	lists, _ := counter.Count(profiling.RequestTypeList)
	require.Equal(t, 1, lists)

	require.Eventually(t, func() bool {
		fetches, _ := counter.Count(profiling.RequestTypeFetch)
		return fetches == 1
	}, 5*time.Second, 10*time.Millisecond)
}
