package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"PriceSignal/internal/domain/models"
)

func TestObservationsHandlerStores(t *testing.T) {
	store := &fakeObservationStore{}
	h := NewObservationsHandler("observations", store, nil)
	if h.Topic() != "observations" {
		t.Fatalf("topic = %q", h.Topic())
	}

	if err := h.Handle(context.Background(), []byte(`{"symbol":" btc ","t":1700000000123,"c":42000.5,"v":3}`)); err != nil {
		t.Fatalf("handle ms: %v", err)
	}
	if err := h.Handle(context.Background(), []byte(`{"symbol":"BTC","t":1700000100,"c":42001,"v":1}`)); err != nil {
		t.Fatalf("handle s: %v", err)
	}

	got := store.stored["BTC"]
	if len(got) != 2 {
		t.Fatalf("stored %d rows under BTC: %v", len(got), store.stored)
	}
	if !got[0].Timestamp.Equal(time.UnixMilli(1700000000123)) || got[0].Close != 42000.5 || got[0].Volume != 3 {
		t.Fatalf("ms row = %+v", got[0])
	}
	if !got[1].Timestamp.Equal(time.Unix(1700000100, 0)) {
		t.Fatalf("seconds row = %+v", got[1])
	}
}

func TestObservationsHandlerMatchesPricePayloadTimestamps(t *testing.T) {
	// 1985 in milliseconds sits between the two historical cut-overs
	const ms = int64(500000000000)
	store := &fakeObservationStore{}
	h := NewObservationsHandler("observations", store, nil)
	if err := h.Handle(context.Background(), []byte(`{"symbol":"ETH","t":500000000000,"c":1}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	obs, err := models.ParsePrices([][]float64{{float64(ms), 1, 0}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := store.stored["ETH"][0].Timestamp
	if !got.Equal(obs[0].Timestamp) || !got.Equal(time.UnixMilli(ms)) {
		t.Fatalf("kafka %v, http %v", got, obs[0].Timestamp)
	}
}

func TestObservationsHandlerRejects(t *testing.T) {
	store := &fakeObservationStore{}
	h := NewObservationsHandler("observations", store, nil)

	for _, msg := range []string{
		`{`,
		`{"t":1700000000,"c":1}`,
		`{"symbol":"BTC","c":1}`,
		`{"symbol":"BTC","t":-5,"c":1}`,
	} {
		if err := h.Handle(context.Background(), []byte(msg)); !errors.Is(err, models.ErrMalformedInput) {
			t.Fatalf("%s: expected malformed input, got %v", msg, err)
		}
	}
	if len(store.stored) != 0 {
		t.Fatalf("rejected messages were stored")
	}

	store.storeErr = errors.New("clickhouse down")
	if err := h.Handle(context.Background(), []byte(`{"symbol":"BTC","t":1700000000,"c":1}`)); !errors.Is(err, store.storeErr) {
		t.Fatalf("store error not returned: %v", err)
	}
}
