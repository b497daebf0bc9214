// Package testserver runs an in-process mail gateway speaking the client's WebSocket protocol.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/lotusmail/lotus/internal/wire"
)

const Path = "/v1/lotus/imap"

// DefaultFolders is the listing the gateway returns unless told otherwise.
func DefaultFolders() []*imap.MailboxInfo {
	folder := func(name string, attrs ...string) *imap.MailboxInfo {
		return &imap.MailboxInfo{Attributes: attrs, Delimiter: "/", Name: name}
	}

	return []*imap.MailboxInfo{
		folder("Archive", `\HasChildren`, `\UnMarked`, `\Archive`),
		folder("Archive/2022", `\HasNoChildren`, `\UnMarked`),
		folder("Archive/2023", `\HasNoChildren`, `\UnMarked`),
		folder("Junk", `\HasNoChildren`, `\UnMarked`, `\Junk`),
		folder("Trash", `\HasChildren`, `\Trash`),
		folder("INBOX/status", `\HasNoChildren`, `\UnMarked`),
		folder("INBOX/hello", `\HasNoChildren`, `\UnMarked`),
		folder("INBOX/hi", `\HasNoChildren`, `\UnMarked`),
		folder("INBOX/test/sub/folder", `\Noselect`, `\HasChildren`),
		folder("INBOX/test/sub/folder/something", `\HasNoChildren`),
		folder("Drafts", `\HasNoChildren`, `\UnMarked`, `\Drafts`),
		folder("Sent", `\HasNoChildren`, `\Sent`),
		folder("INBOX", `\HasChildren`),
	}
}

type conn struct {
	id   string
	ws   *websocket.Conn
	lock sync.Mutex
}

func (c *conn) write(b []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.ws.WriteMessage(websocket.TextMessage, b)
}

type heldFetch struct {
	conn *conn
	args wire.FetchArgs
}

// Server is a fake gateway. All of its methods are safe for concurrent use.
type Server struct {
	token string
	http  *httptest.Server

	lock     sync.Mutex
	folders  []*imap.MailboxInfo
	messages map[string][]*wire.Message
	conns    map[string]*conn
	lists    int
	fetches  []wire.FetchArgs
	hold     bool
	held     []heldFetch
	agents   []string
}

// New starts a gateway that accepts the given token.
func New(token string) *Server {
	server := &Server{
		token:    token,
		folders:  DefaultFolders(),
		messages: make(map[string][]*wire.Message),
		conns:    make(map[string]*conn),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(Path, server.serve)

	// Browsers open the socket from the webmail origin.
	server.http = httptest.NewServer(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet},
		AllowCredentials: true,
	}).Handler(mux))

	return server
}

// URL returns the WebSocket URL of the gateway.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + Path
}

func (s *Server) Close() {
	s.Disconnect()
	s.http.Close()
}

// Disconnect drops every client connection without a close frame.
func (s *Server) Disconnect() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, c := range s.conns {
		_ = c.ws.Close()
	}
}

func (s *Server) SetFolders(folders ...*imap.MailboxInfo) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.folders = folders
}

func (s *Server) SetMessages(path string, messages ...*wire.Message) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.messages[path] = messages
}

// Hold makes the gateway keep fetch replies until Release is called.
func (s *Server) Hold() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.hold = true
}

// Release sends every held fetch reply, most recent request first, and stops holding.
func (s *Server) Release() {
	s.lock.Lock()
	held := s.held
	s.held, s.hold = nil, false
	s.lock.Unlock()

	for idx := len(held) - 1; idx >= 0; idx-- {
		s.replyFetch(held[idx].conn, held[idx].args)
	}
}

// Broadcast writes a raw frame to every connected client.
func (s *Server) Broadcast(frame []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, c := range s.conns {
		if err := c.write(frame); err != nil {
			logrus.WithError(err).WithField("conn", c.id).Warn("Failed to broadcast frame")
		}
	}
}

// Lists returns how many list requests were received.
func (s *Server) Lists() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.lists
}

// UserAgents returns the User-Agent header of every connection so far.
func (s *Server) UserAgents() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	return slices.Clone(s.agents)
}

// Fetches returns the fetch requests received so far.
func (s *Server) Fetches() []wire.FetchArgs {
	s.lock.Lock()
	defer s.lock.Unlock()

	return slices.Clone(s.fetches)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &conn{id: uuid.NewString(), ws: ws}

	s.lock.Lock()
	s.conns[c.id] = c
	s.agents = append(s.agents, r.UserAgent())
	s.lock.Unlock()

	defer func() {
		s.lock.Lock()
		delete(s.conns, c.id)
		s.lock.Unlock()

		_ = ws.Close()
	}()

	for {
		var req map[string]json.RawMessage

		if err := ws.ReadJSON(&req); err != nil {
			return
		}

		if !s.handle(c, req) {
			return
		}
	}
}

func (s *Server) handle(c *conn, req map[string]json.RawMessage) bool {
	log := logrus.WithField("conn", c.id)

	if raw, ok := req["token"]; ok {
		var token string

		if err := json.Unmarshal(raw, &token); err != nil || token != s.token {
			_ = c.write([]byte("Invalid token"))
			return false
		}

		return c.write([]byte(`{"auth":"ok"}`)) == nil
	}

	var action string

	if err := json.Unmarshal(req["action"], &action); err != nil {
		log.WithError(err).Warn("Request without action")
		return true
	}

	switch action {
	case wire.ActionList:
		var args []string

		if err := json.Unmarshal(req["args"], &args); err != nil || !slices.Equal(args, []string{"", "*"}) {
			log.WithField("args", string(req["args"])).Warn("Unsupported list arguments")
			return true
		}

		s.lock.Lock()
		s.lists++
		b, err := json.Marshal(map[string]any{"type": wire.TypeList, "value": s.folders})
		s.lock.Unlock()

		if err != nil {
			log.WithError(err).Error("Failed to encode folders")
			return false
		}

		return c.write(b) == nil

	case wire.ActionFetch:
		var args wire.FetchArgs

		if err := json.Unmarshal(req["args"], &args); err != nil {
			log.WithError(err).Warn("Invalid fetch arguments")
			return true
		}

		s.lock.Lock()
		s.fetches = append(s.fetches, args)

		if s.hold {
			s.held = append(s.held, heldFetch{conn: c, args: args})
			s.lock.Unlock()

			return true
		}

		s.lock.Unlock()

		return s.replyFetch(c, args)

	default:
		log.WithField("action", action).Warn("Unknown action")
		return true
	}
}

func (s *Server) replyFetch(c *conn, args wire.FetchArgs) bool {
	s.lock.Lock()
	b, err := json.Marshal(map[string]any{"type": wire.TypeFetch, "sync": args.Sync, "value": s.messages[args.Path]})
	s.lock.Unlock()

	if err != nil {
		logrus.WithError(err).Error("Failed to encode messages")
		return false
	}

	return c.write(b) == nil
}
