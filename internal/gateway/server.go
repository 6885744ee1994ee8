// Package gateway serves the WebSocket protocol: it authenticates connections,
// decodes client messages into directory calls and delivers match events.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/bonk-chess-server/internal/lobby"
	"github.com/park285/bonk-chess-server/internal/msgcat"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/internal/session"
	"github.com/park285/bonk-chess-server/pkg/bonkdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type Options struct {
	Directory *lobby.Directory
	Hub       *Hub
	// Sessions resolves ?token=; nil disables token sign-in.
	Sessions    session.Store
	Catalog     *msgcat.Catalog
	AllowGuests bool
	// OriginPatterns are host patterns accepted in the Origin header.
	OriginPatterns []string
	PingInterval   time.Duration
	NewID          func() string
}

type Server struct {
	opts Options
}

func NewServer(opts Options) *Server {
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Server{opts: opts}
}

var guestNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

type identity struct {
	username string
	guest    bool
}

var errUnauthorized = errors.New("unauthorized")

// identify resolves the caller from ?token= (or a bearer header) or, when
// guests are allowed, ?username=. Rejections are errUnauthorized; any other
// error means the session store could not answer.
func (s *Server) identify(r *http.Request) (identity, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	if token != "" && s.opts.Sessions != nil {
		id, err := s.opts.Sessions.Resolve(r.Context(), token)
		switch {
		case err == nil:
			return identity{username: id.Username}, nil
		case errors.Is(err, session.ErrNotFound):
			obslog.L().Info("ws_token_rejected")
			return identity{}, errUnauthorized
		default:
			obslog.L().Warn("ws_session_lookup_failed", zap.Error(err))
			return identity{}, err
		}
	}
	if !s.opts.AllowGuests {
		return identity{}, errUnauthorized
	}
	name := strings.TrimSpace(r.URL.Query().Get("username"))
	if name == "" {
		name = "guest-" + uuid.NewString()[:8]
	}
	if !guestNamePattern.MatchString(name) {
		return identity{}, errUnauthorized
	}
	return identity{username: name, guest: true}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	who, err := s.identify(r)
	switch {
	case errors.Is(err, errUnauthorized):
		http.Error(w, s.opts.Catalog.Text("error.unauthorized", nil, "unauthorized"), http.StatusUnauthorized)
		return
	case err != nil:
		http.Error(w, s.opts.Catalog.Text("auth.unavailable", nil, "unavailable"), http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Info("ws_accept_failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	c := newClient(s.opts.NewID(), who.username, who.guest, conn)
	s.opts.Hub.register(c)
	c.enqueue(bonkdto.Outgoing{Type: bonkdto.TypeWelcome, Data: bonkdto.Welcome{ConnID: c.id, Username: c.username, Guest: c.guest}})
	obslog.L().Info("ws_connected", zap.String("conn_id", c.id), zap.String("username", c.username), zap.Bool("guest", c.guest))

	s.serve(r.Context(), c)
}

func (s *Server) serve(ctx context.Context, c *client) {
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		select {
		case <-c.stopCh:
			cancelRead()
		case <-readCtx.Done():
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx, s.opts.PingInterval)
	}()

	c.readLoop(readCtx, s.dispatch)

	s.opts.Hub.unregister(c)
	c.stop()
	ended := s.opts.Directory.Disconnect(c.id)
	wg.Wait()
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	obslog.L().Info("ws_disconnected", zap.String("conn_id", c.id), zap.Strings("ended", ended))
}

// Shutdown closes every connection.
func (s *Server) Shutdown() {
	s.opts.Hub.CloseAll()
}
