package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/internal/services/artifact"
	"PriceSignal/internal/services/features"
	"PriceSignal/internal/services/sequence"
	"PriceSignal/pkg/logger"
	"PriceSignal/pkg/metrics"
)

// volatilityWindow is the number of returns used for the volatility nowcast.
const volatilityWindow = 20

// Predictor runs inference against the currently loaded artifact. Reload
// swaps the artifact atomically; in-flight predictions finish on the one
// they started with.
type Predictor struct {
	store   domrepo.ArtifactStore
	metrics domrepo.Metrics
	l       *logger.Logger
	current atomic.Pointer[artifact.Trained]
}

func NewPredictor(store domrepo.ArtifactStore, m domrepo.Metrics, l *logger.Logger) *Predictor {
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Predictor{store: store, metrics: m, l: l}
}

// Reload reads the stored artifact and makes it current. On error the
// previous artifact stays in place.
func (p *Predictor) Reload(ctx context.Context) error {
	blob, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load artifact from %s: %w", p.store.Location(), err)
	}
	a, err := artifact.Decode(blob)
	if err != nil {
		p.metrics.RecordError("artifact_decode")
		return err
	}
	p.Set(a)
	return nil
}

// Set makes a the current artifact.
func (p *Predictor) Set(a *artifact.Trained) {
	prev := p.current.Swap(a)
	fields := []logger.Field{logger.String("artifact", a.Meta.ID)}
	if prev != nil {
		fields = append(fields, logger.String("previous", prev.Meta.ID))
	}
	p.l.Info("artifact loaded", fields...)
}

// Current returns the loaded artifact, or nil.
func (p *Predictor) Current() *artifact.Trained {
	return p.current.Load()
}

// PredictPrices validates raw [timestamp, close, volume] triples and predicts.
func (p *Predictor) PredictPrices(ctx context.Context, symbol string, iv models.Interval, prices [][]float64) (*models.Prediction, error) {
	obs, err := models.ParsePrices(prices)
	if err != nil {
		p.metrics.RecordError("malformed_input")
		return nil, err
	}
	return p.Predict(ctx, symbol, iv, obs)
}

// Predict classifies the most recent window of obs.
func (p *Predictor) Predict(_ context.Context, symbol string, iv models.Interval, obs []models.Observation) (*models.Prediction, error) {
	a := p.current.Load()
	if a == nil {
		return nil, &models.NotFittedError{Component: "predictor"}
	}
	start := time.Now()
	length := a.Meta.SequenceLength
	if len(obs) < length {
		return nil, &models.InsufficientDataError{Stage: "inference input", Have: len(obs), Need: length}
	}

	sorted := make([]models.Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	rows := features.ComputeInference(sorted)
	window, err := sequence.BuildInference(rows, a.Scaler, length)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", symbol, err)
	}
	probs, err := a.Model.PredictProba(window)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", symbol, err)
	}
	if len(probs) != models.NumClasses {
		return nil, &models.ShapeMismatchError{What: "model output", WantRows: 1, WantCols: models.NumClasses, GotRows: 1, GotCols: len(probs)}
	}

	pred := &models.Prediction{
		Symbol:      symbol,
		Interval:    iv,
		ArtifactID:  a.Meta.ID,
		Volatility:  features.Nowcast(sorted, volatilityWindow, iv),
		LastClose:   sorted[len(sorted)-1].Close,
		Timestamp:   sorted[len(sorted)-1].Timestamp,
		GeneratedAt: time.Now().UTC(),
	}
	best := 0
	for i, v := range probs {
		pred.Probabilities[i] = v
		if v > probs[best] {
			best = i
		}
	}
	pred.Signal = models.Signal(best)

	p.metrics.RecordPrediction(symbol, string(iv), pred.Signal.String())
	p.metrics.RecordLatency("predict", time.Since(start).Seconds())
	return pred, nil
}
