// Package remote carries protocol envelopes over a websocket so a
// foreground in another process can drive the worker.
package remote

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/thingforge/thingforge/internal/events"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/protocol"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxMessage   = 64 << 20
	localReplies = 16
)

// Submitter queues a request under the id chosen by the remote side.
type Submitter interface {
	SubmitWithID(id string, cmd protocol.Command) string
}

// Server accepts websocket peers. Each peer's envelopes are submitted to
// the worker and every notification on the bus is sent to every peer.
type Server struct {
	submit   Submitter
	bus      *events.Bus
	secret   string
	upgrader ws.Upgrader
	logger   *slog.Logger
	peers    sync.WaitGroup
}

// NewServer returns a server. An empty secret accepts every peer.
func NewServer(submit Submitter, bus *events.Bus, secret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		submit: submit,
		bus:    bus,
		secret: secret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// peers are local tools, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}
	got := r.URL.Query().Get("secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("websocket peer rejected", "remote", r.RemoteAddr)
		http.Error(w, "invalid secret", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	p := &peer{
		conn:    conn,
		sub:     s.bus.Subscribe(),
		replies: make(chan protocol.Command, localReplies),
		done:    make(chan struct{}),
		logger:  s.logger.With("remote", r.RemoteAddr),
	}
	s.peers.Add(1)
	p.logger.Info("websocket peer connected")
	go p.writePump()
	p.readPump(s.submit)
	s.peers.Done()
}

// Wait blocks until every peer has disconnected.
func (s *Server) Wait() {
	s.peers.Wait()
}

type peer struct {
	conn    *ws.Conn
	sub     *events.Subscription
	replies chan protocol.Command
	done    chan struct{}
	logger  *slog.Logger
}

func (p *peer) readPump(submit Submitter) {
	defer func() {
		close(p.done)
		p.sub.Close()
		_ = p.conn.Close()
		p.logger.Info("websocket peer disconnected")
	}()

	p.conn.SetReadLimit(maxMessage)
	if err := p.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
				p.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		if err := p.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			p.reject("", fault.Protocolf("invalid envelope: %v", err))
			continue
		}
		cmd, err := env.Decode()
		if err != nil {
			p.reject(env.ID, err)
			continue
		}
		if cmd.Kind().IsNotification() {
			p.reject(env.ID, fault.Protocolf("%s is not a request", cmd.Kind()))
			continue
		}
		submit.SubmitWithID(env.ID, cmd)
	}
}

// reject answers a message that never reached the worker.
func (p *peer) reject(id string, err error) {
	p.logger.Warn("websocket message rejected", "id", id, "error", err)
	entry := protocol.Log{Level: protocol.LevelError, Message: err.Error(), Source: fault.Name(err)}
	select {
	case p.replies <- entry:
	default:
	}
	if id == "" {
		return
	}
	select {
	case p.replies <- protocol.Result{RequestID: id, Error: err.Error(), ErrorKind: fault.Name(err)}:
	default:
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		var n protocol.Command
		select {
		case <-p.done:
			return
		case n = <-p.replies:
		case next, ok := <-p.sub.C():
			if !ok {
				return
			}
			n = next
		case <-ticker.C:
			if err := p.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		if err := p.write(n); err != nil {
			p.logger.Warn("websocket write error", "error", err)
			return
		}
	}
}

func (p *peer) write(n protocol.Command) error {
	id := ""
	if r, ok := n.(protocol.Result); ok {
		id = r.RequestID
	}
	env, err := protocol.NewEnvelope(id, n)
	if err != nil {
		return fmt.Errorf("encode %s: %w", n.Kind(), err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteMessage(ws.TextMessage, data)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, s *Server) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("remote transport listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
