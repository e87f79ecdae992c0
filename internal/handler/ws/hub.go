// Package ws pushes analysis summaries to browser subscribers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"TradeDash/internal/service/metrics"
	"TradeDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1024
)

// Envelope is the frame written to every subscriber.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	TS   time.Time       `json:"ts"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcast frames out to connected clients. A client whose send
// buffer is full is disconnected instead of stalling the others.
type Hub struct {
	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	log          *logger.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]struct{}
	count      atomic.Int64

	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

type HubOption func(*Hub)

func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

func WithWriteTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

func NewHub(log *logger.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBuffer:   16,
		writeTimeout: 10 * time.Second,
		log:          log.Named("ws"),
		register:     make(chan *client),
		unregister:   make(chan *client),
		broadcast:    make(chan []byte, 64),
		clients:      make(map[*client]struct{}),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts GET /ws.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Start runs the fan-out loop until Stop or ctx ends.
func (h *Hub) Start(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	go h.run(ctx)
}

// Stop disconnects every client and waits for the loop to exit.
func (h *Hub) Stop(ctx context.Context) error {
	h.once.Do(func() { close(h.stopCh) })
	if !h.started.Load() {
		return nil
	}
	select {
	case <-h.done:
		h.log.Info("websocket hub stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount reports connected subscribers.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Broadcast queues payload for every subscriber. It never blocks; when the
// queue is full the frame is discarded.
func (h *Hub) Broadcast(kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("encode broadcast payload", logger.String("type", kind), logger.Error(err))
		return
	}
	frame, err := json.Marshal(Envelope{Type: kind, Data: data, TS: time.Now().UTC()})
	if err != nil {
		h.log.Warn("encode broadcast envelope", logger.String("type", kind), logger.Error(err))
		return
	}
	select {
	case h.broadcast <- frame:
	default:
		h.log.Warn("broadcast queue full, frame dropped", logger.String("type", kind))
	}
}

// Serve upgrades the request and attaches the connection to the hub.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return nil
	}
	cl := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	select {
	case h.register <- cl:
	case <-h.stopCh:
		conn.Close()
		return nil
	case <-h.done:
		conn.Close()
		return nil
	}
	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	defer func() {
		for cl := range h.clients {
			h.remove(cl)
		}
	}()
	h.log.Info("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case cl := <-h.register:
			h.clients[cl] = struct{}{}
			h.count.Add(1)
			metrics.WSClients.Inc()
			h.log.Debug("client connected", logger.Int("clients", h.ClientCount()))
		case cl := <-h.unregister:
			if _, ok := h.clients[cl]; ok {
				h.remove(cl)
			}
		case frame := <-h.broadcast:
			for cl := range h.clients {
				select {
				case cl.send <- frame:
				default:
					h.log.Warn("slow client dropped")
					h.remove(cl)
				}
			}
		}
	}
}

// remove must only be called from the run loop.
func (h *Hub) remove(cl *client) {
	delete(h.clients, cl)
	close(cl.send)
	h.count.Add(-1)
	metrics.WSClients.Dec()
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services pongs and close frames; clients never send data.
func (h *Hub) readPump(cl *client) {
	defer func() {
		select {
		case h.unregister <- cl:
		case <-h.done:
		}
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(readLimit)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
