package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"PriceSignal/internal/domain/models"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestHubBroadcastWithFilter(t *testing.T) {
	h := New(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	all := dial(t, srv, "/")
	eth := dial(t, srv, "/?symbol=eth")
	waitClients(t, h, 2)

	_ = h.Publish(context.Background(), &models.Prediction{Symbol: "BTC", Interval: models.IntervalDay, Signal: models.SignalUp})
	_ = h.Publish(context.Background(), &models.Prediction{Symbol: "ETH", Interval: models.IntervalHour, Signal: models.SignalDown})

	if env := readEnvelope(t, all); env.Symbol != "BTC" || env.Label != "up" {
		t.Fatalf("unexpected first frame %+v", env)
	}
	if env := readEnvelope(t, all); env.Symbol != "ETH" {
		t.Fatalf("unexpected second frame %+v", env)
	}
	if env := readEnvelope(t, eth); env.Symbol != "ETH" || env.Signal != int(models.SignalDown) {
		t.Fatalf("filtered client got %+v", env)
	}
}

func TestHubReplaysLatestOnConnect(t *testing.T) {
	h := New(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	_ = h.Publish(context.Background(), &models.Prediction{Symbol: "BTC", Interval: models.IntervalDay, Signal: models.SignalStable})
	conn := dial(t, srv, "/?symbol=btc")
	env := readEnvelope(t, conn)
	if !env.Initial || env.Label != "stable" {
		t.Fatalf("expected initial snapshot, got %+v", env)
	}
}
