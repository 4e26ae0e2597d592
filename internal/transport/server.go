package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"codeberg.org/mutker/sysfeed/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultOperationTimeout = 10 * time.Second
	shutdownTimeout         = 5 * time.Second
)

// Registry is the part of the provider manager the server drives.
type Registry interface {
	CreateFromMap(ctx context.Context, fingerprint string, raw map[string]any, subscriberID string) (string, error)
	Destroy(ctx context.Context, fingerprint, subscriberID string) error
	DestroySubscriber(ctx context.Context, subscriberID string) error
	Fingerprints() []string
}

// Server exposes the registry over websockets. Every connection is one
// subscriber.
type Server struct {
	registry  Registry
	hub       *Hub
	metrics   metrics.MetricsCollector
	log       logger.Logger
	upgrader  websocket.Upgrader
	opTimeout time.Duration
}

type Option func(*Server)

// WithMetrics serves the collector's counters on /stats.
func WithMetrics(c metrics.MetricsCollector) Option {
	return func(s *Server) { s.metrics = c }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithOperationTimeout bounds each listen, unlisten and disconnect cleanup.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Server) { s.opTimeout = d }
}

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

func NewServer(registry Registry, hub *Hub, opts ...Option) *Server {
	s := &Server{
		registry:  registry,
		hub:       hub,
		opTimeout: defaultOperationTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 8192,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewService(metrics.Config{Enabled: false})
	}
	if s.log == nil {
		s.log = logger.Get().With("component", "transport")
	}

	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", s.serveHealth)
	mux.HandleFunc("/stats", s.serveStats)

	return mux
}

// ListenAndServe serves on addr until ctx is done, then disconnects every
// client and shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errFactory := errors.New()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info().Str("listen", addr).Msg("Websocket server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errFactory.Wrap(ErrServerFailed, err)
	case <-ctx.Done():
	}

	s.hub.closeAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}

	c := newClient(uuid.NewString(), conn, s.hub.queueSize)
	s.hub.register(c)

	s.log.Info().
		Str("subscriber", c.id).
		Str("remote", r.RemoteAddr).
		Msg("Subscriber connected")

	go c.writePump()
	s.readPump(c)

	c.close()

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	if err := s.registry.DestroySubscriber(ctx, c.id); err != nil {
		s.log.Warn().Err(err).Str("subscriber", c.id).Msg("Failed to release subscriber")
	}
	s.hub.unregister(c)

	s.log.Info().Str("subscriber", c.id).Msg("Subscriber disconnected")
}

func (s *Server) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("subscriber", c.id).Msg("Connection closed")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		s.handle(c, data)
	}
}

func (s *Server) handle(c *client, data []byte) {
	req, err := decodeRequest(data)
	if err != nil {
		s.replyError(c, "", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	switch req.Type {
	case typeListen:
		fingerprint, err := s.registry.CreateFromMap(ctx, req.ConfigHash, req.Config, c.id)
		if err != nil {
			s.replyError(c, req.ConfigHash, err)
			return
		}
		s.reply(c, typeListening, fingerprint)
	case typeUnlisten:
		err := s.registry.Destroy(ctx, req.ConfigHash, c.id)
		switch {
		case errors.HasCode(err, errors.ErrTimeout):
			// The subscription is already gone; only the loop is still stopping.
			s.log.Warn().
				Err(err).
				Str("subscriber", c.id).
				Str("fingerprint", req.ConfigHash).
				Msg("Provider still stopping after unlisten")
		case err != nil:
			s.replyError(c, req.ConfigHash, err)
			return
		}
		s.reply(c, typeUnlistening, req.ConfigHash)
	default:
		s.replyError(c, req.ConfigHash, errors.New().WithData(ErrUnknownMessage, req.Type))
	}
}

func (s *Server) reply(c *client, kind, configHash string) {
	data, err := encodeAck(kind, configHash)
	if err == nil {
		err = c.enqueue(data)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("subscriber", c.id).Msg("Failed to send reply")
	}
}

func (s *Server) replyError(c *client, configHash string, cause error) {
	s.log.Debug().
		Err(cause).
		Str("subscriber", c.id).
		Str("fingerprint", configHash).
		Msg("Request rejected")

	data, err := encodeError(configHash, cause)
	if err == nil {
		err = c.enqueue(data)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("subscriber", c.id).Msg("Failed to send error reply")
	}
}

type health struct {
	Status      string `json:"status"`
	Providers   int    `json:"providers"`
	Subscribers int    `json:"subscribers"`
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, health{
		Status:      "ok",
		Providers:   len(s.registry.Fingerprints()),
		Subscribers: s.hub.Len(),
	})
}

// serveStats serves the counters of every fingerprint, or of the one named
// by the fingerprint query parameter.
func (s *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.URL.Query().Get("fingerprint")
	if fingerprint == "" {
		s.writeJSON(w, s.metrics.Snapshots())
		return
	}

	snap, ok := s.metrics.Snapshot(fingerprint)
	if !ok {
		http.Error(w, errors.GetErrorMessage(errors.ErrResourceNotFound), http.StatusNotFound)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write response")
	}
}
