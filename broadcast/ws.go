package broadcast

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/convene/logging"
)

// GatewayOptions configure the WebSocket gateway.
type GatewayOptions struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	Logger       logging.Logger

	// CheckOrigin overrides the upgrader's origin check. Defaults to the
	// gorilla same-origin policy.
	CheckOrigin func(r *http.Request) bool
}

// Gateway streams a thread's live feed over a WebSocket connection. Clients
// connect with the thread id in the "thread" query parameter and receive one
// JSON-encoded Event per frame. It is transport for the broadcaster, not an
// API surface: no authentication, routing or replay.
type Gateway struct {
	manager  *Manager
	upgrader websocket.Upgrader
	logger   logging.Logger

	writeTimeout time.Duration
	pingInterval time.Duration
}

// NewGateway constructs a Gateway over the manager.
func NewGateway(manager *Manager, optFns ...func(o *GatewayOptions)) *Gateway {
	opts := GatewayOptions{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Gateway{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 10,
			WriteBufferSize: 1 << 10,
			CheckOrigin:     opts.CheckOrigin,
		},
		logger:       opts.Logger,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
	}
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("thread")
	if threadID == "" {
		http.Error(w, "thread query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := g.manager.Subscribe(threadID)
	defer sub.Close()

	// Reader goroutine: we send no application data the other way, but
	// reading surfaces client close frames and connection errors.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	ping := time.NewTicker(g.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Debug("websocket closed", "thread_id", threadID, "error", err)
			}
			return

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				g.logger.Debug("websocket write failed", "thread_id", threadID, "error", err)
				return
			}

		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
