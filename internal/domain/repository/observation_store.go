package repository

import (
	"context"
	"time"

	"PriceSignal/internal/domain/models"
)

// HistorySource provides an ordered observation history for training.
type HistorySource interface {
	History(ctx context.Context, symbol string, from, to time.Time) ([]models.Observation, error)
}

// ObservationStore persists observations received from the ingest stream.
type ObservationStore interface {
	HistorySource
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, symbol string, obs []models.Observation) error
	Health(ctx context.Context) error
	Close() error
}
