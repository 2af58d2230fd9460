package repository

import (
	"context"
	"errors"

	"PriceSignal/internal/domain/models"
)

// ErrArtifactNotFound is returned by ArtifactStore.Load when nothing was saved yet.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore persists the encoded trained artifact. Save must be atomic:
// a failed save leaves the previously stored artifact readable.
type ArtifactStore interface {
	Save(ctx context.Context, blob []byte) error
	Load(ctx context.Context) ([]byte, error)
	Location() string
}

// SignalPublisher fans predictions out to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, p *models.Prediction) error
	Close() error
}

type Metrics interface {
	RecordPrediction(symbol, interval, signal string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordTrainingEpoch(epoch int, loss, accuracy, valLoss, valAccuracy float64)
	RecordObservations(symbol string, n int)
}
