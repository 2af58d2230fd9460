package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the frame pushed to subscribers.
type Envelope struct {
	Type          string     `json:"type"`
	Symbol        string     `json:"symbol"`
	Interval      string     `json:"interval"`
	Signal        int        `json:"signal"`
	Label         string     `json:"label"`
	Probabilities [3]float64 `json:"probabilities"`
	Volatility    float64    `json:"volatility"`
	LastClose     float64    `json:"last_close"`
	Timestamp     time.Time  `json:"ts"`
	Initial       bool       `json:"initial,omitempty"`
}

func newEnvelope(p *models.Prediction) Envelope {
	return Envelope{
		Type:          "signal",
		Symbol:        p.Symbol,
		Interval:      string(p.Interval),
		Signal:        int(p.Signal),
		Label:         p.Signal.String(),
		Probabilities: p.Probabilities,
		Volatility:    p.Volatility,
		LastClose:     p.LastClose,
		Timestamp:     p.Timestamp,
	}
}

// Hub fans predictions out to websocket subscribers and remembers the
// latest one per (symbol, interval) for clients that connect later.
type Hub struct {
	l *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  map[string]Envelope
	closed  bool
}

var _ domrepo.SignalPublisher = (*Hub)(nil)

func New(l *logger.Logger) *Hub {
	if l == nil {
		l = logger.Nop()
	}
	return &Hub{
		l:       l,
		clients: make(map[*client]struct{}),
		latest:  make(map[string]Envelope),
	}
}

// Publish broadcasts p to every subscriber whose filter matches. Slow clients
// drop frames instead of blocking the publisher.
func (h *Hub) Publish(_ context.Context, p *models.Prediction) error {
	env := newEnvelope(p)
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.latest[latestKey(env.Symbol, env.Interval)] = env
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(env.Symbol) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.l.Debug("ws client slow, frame dropped", logger.String("symbol", env.Symbol))
		}
	}
	return nil
}

// ServeHTTP upgrades the request. An optional ?symbol=BTC,ETH query limits
// the stream to those symbols.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn("ws upgrade error", logger.Error(err))
		return
	}
	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		symbols: parseSymbols(r.URL.Query().Get("symbol")),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	for _, env := range h.latest {
		if !c.wants(env.Symbol) {
			continue
		}
		env.Initial = true
		if b, err := json.Marshal(env); err == nil {
			select {
			case c.send <- b:
			default:
			}
		}
	}
	h.mu.Unlock()

	h.l.Info("ws client connected", logger.Int("clients", count))
	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func latestKey(symbol, interval string) string {
	return strings.ToLower(symbol) + ":" + interval
}

func parseSymbols(raw string) map[string]struct{} {
	if raw == "" {
		return nil
	}
	out := make(map[string]struct{})
	for _, s := range strings.Split(raw, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}
