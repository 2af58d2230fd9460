package usecase

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	pkgkafka "PriceSignal/pkg/kafka"
	"PriceSignal/pkg/metrics"
)

// ObservationsHandler consumes observation messages and writes them to storage.
type ObservationsHandler struct {
	topic   string
	store   domrepo.ObservationStore
	metrics domrepo.Metrics
}

func NewObservationsHandler(topic string, store domrepo.ObservationStore, m domrepo.Metrics) *ObservationsHandler {
	if m == nil {
		m = metrics.Nop{}
	}
	return &ObservationsHandler{topic: topic, store: store, metrics: m}
}

func (h *ObservationsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, c, v}; t in seconds or milliseconds
func (h *ObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return &models.MalformedInputError{Field: "message", Index: -1, Reason: err.Error()}
	}
	m.Symbol = strings.ToUpper(strings.TrimSpace(m.Symbol))
	if m.Symbol == "" || m.T <= 0 || math.IsNaN(m.C) || math.IsInf(m.C, 0) {
		h.metrics.RecordError("consumer_invalid")
		return &models.MalformedInputError{Field: "message", Index: -1, Reason: "symbol, t and c are required"}
	}
	ts := models.UnixAuto(m.T)
	h.metrics.RecordLatency("ingest_e2e", time.Since(ts).Seconds())

	start := time.Now()
	err := h.store.StoreBatch(ctx, m.Symbol, []models.Observation{{Timestamp: ts, Close: m.C, Volume: m.V}})
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordObservations(m.Symbol, 1)
	return nil
}

var _ pkgkafka.MessageHandler = (*ObservationsHandler)(nil)
