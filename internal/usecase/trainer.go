package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/internal/repository"
	"PriceSignal/internal/services/artifact"
	"PriceSignal/internal/services/classifier"
	"PriceSignal/internal/services/features"
	"PriceSignal/internal/services/scaler"
	"PriceSignal/internal/services/sequence"
	"PriceSignal/pkg/logger"
	"PriceSignal/pkg/metrics"
)

// TrainerState is the training driver lifecycle.
type TrainerState int

const (
	TrainerUninitialized TrainerState = iota
	TrainerDataLoaded
	TrainerTrained
)

func (s TrainerState) String() string {
	switch s {
	case TrainerUninitialized:
		return "uninitialized"
	case TrainerDataLoaded:
		return "data_loaded"
	case TrainerTrained:
		return "trained"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TrainerOptions fixes the geometry and hyper-parameters of one training run.
type TrainerOptions struct {
	Sequence sequence.Config
	Model    classifier.Config
	Train    classifier.TrainOptions
	// Resume seeds training with the stored model's weights. The scaler is
	// always re-fit on the new data.
	Resume bool
}

func DefaultTrainerOptions() TrainerOptions {
	return TrainerOptions{
		Sequence: sequence.DefaultConfig(),
		Model:    classifier.DefaultConfig(),
		Train:    classifier.DefaultTrainOptions(),
	}
}

// Trainer drives Uninitialized -> DataLoaded -> Trained. A failed step
// leaves the state and the stored artifact as they were.
type Trainer struct {
	mu      sync.Mutex
	opts    TrainerOptions
	store   domrepo.ArtifactStore
	metrics domrepo.Metrics
	l       *logger.Logger

	state  TrainerState
	source string
	set    *sequence.TrainingSet
	scaler *scaler.MinMax
	last   *artifact.Trained
}

func NewTrainer(store domrepo.ArtifactStore, m domrepo.Metrics, l *logger.Logger, opts TrainerOptions) *Trainer {
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = logger.Nop()
	}
	opts.Model.SequenceLength = opts.Sequence.Length
	return &Trainer{opts: opts, store: store, metrics: m, l: l}
}

func (t *Trainer) State() TrainerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Artifact returns the artifact produced by the last successful Train.
func (t *Trainer) Artifact() *artifact.Trained {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// LoadCSV reads a Date, Close, Volume file and prepares it for training.
func (t *Trainer) LoadCSV(ctx context.Context, path string) error {
	return t.LoadHistory(ctx, repository.NewCSVHistory(path), path, time.Time{}, time.Time{})
}

// LoadHistory pulls a series from src and prepares it for training.
func (t *Trainer) LoadHistory(ctx context.Context, src domrepo.HistorySource, symbol string, from, to time.Time) error {
	obs, err := src.History(ctx, symbol, from, to)
	if err != nil {
		return fmt.Errorf("load history %s: %w", symbol, err)
	}
	return t.LoadObservations(obs, symbol)
}

// LoadObservations computes indicators, fits the scaler and builds the
// labeled windows. Observations are sorted; duplicate timestamps are rejected.
func (t *Trainer) LoadObservations(obs []models.Observation, source string) error {
	sorted := make([]models.Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp.Equal(sorted[i-1].Timestamp) {
			return &models.MalformedInputError{Field: "timestamp", Index: i, Reason: "duplicate timestamp"}
		}
	}

	cfg := t.opts.Sequence
	rows := sequence.Clean(features.Compute(sorted))
	if len(rows) < cfg.MinRows() {
		return &models.InsufficientDataError{Stage: "training rows", Have: len(rows), Need: cfg.MinRows()}
	}
	s, err := scaler.Fit(sequence.Matrix(rows))
	if err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}
	set, err := sequence.BuildTraining(rows, s, cfg)
	if err != nil {
		return fmt.Errorf("build windows: %w", err)
	}

	t.mu.Lock()
	t.set, t.scaler, t.source = set, s, source
	t.state = TrainerDataLoaded
	t.mu.Unlock()

	t.l.Info("training data loaded",
		logger.String("source", source),
		logger.Int("observations", len(obs)),
		logger.Int("rows", len(rows)),
		logger.Int("windows", set.Len()))
	return nil
}

// Train fits the classifier on the loaded windows and saves the artifact.
func (t *Trainer) Train(ctx context.Context) (*artifact.Trained, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TrainerUninitialized {
		return nil, &models.NotFittedError{Component: "trainer"}
	}
	start := time.Now()

	net, err := t.network(ctx)
	if err != nil {
		return nil, err
	}

	opts := t.opts.Train
	opts.OnEpoch = func(e classifier.EpochStats) {
		t.metrics.RecordTrainingEpoch(e.Epoch, e.Loss, e.Accuracy, e.ValLoss, e.ValAccuracy)
		t.l.Info("epoch done",
			logger.Int("epoch", e.Epoch),
			logger.Float64("loss", e.Loss),
			logger.Float64("accuracy", e.Accuracy),
			logger.Float64("val_loss", e.ValLoss),
			logger.Float64("val_accuracy", e.ValAccuracy))
	}
	report, err := net.Train(t.set.Windows, t.set.Labels, opts)
	if err != nil {
		t.metrics.RecordError("train")
		return nil, fmt.Errorf("train: %w", err)
	}

	art, err := artifact.New(artifact.Metadata{
		Source:    t.source,
		Horizon:   t.opts.Sequence.Horizon,
		Threshold: t.opts.Sequence.Threshold,
		Rows:      t.set.Rows,
		Report:    report,
	}, t.scaler, net)
	if err != nil {
		return nil, fmt.Errorf("assemble artifact: %w", err)
	}
	blob, err := art.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if err := t.store.Save(ctx, blob); err != nil {
		t.metrics.RecordError("artifact_save")
		return nil, fmt.Errorf("save artifact to %s: %w", t.store.Location(), err)
	}

	t.state = TrainerTrained
	t.last = art
	t.metrics.RecordLatency("train", time.Since(start).Seconds())
	final := report.Final()
	t.l.Info("model trained",
		logger.String("artifact", art.Meta.ID),
		logger.String("location", t.store.Location()),
		logger.Int("epochs", len(report.Epochs)),
		logger.Int("train_samples", report.TrainSamples),
		logger.Int("validation_samples", report.ValidationSamples),
		logger.Float64("loss", final.Loss),
		logger.Float64("val_accuracy", final.ValAccuracy),
		logger.Duration("duration_ms", time.Since(start)))
	return art, nil
}

// network returns a fresh classifier, or the stored one when resuming.
func (t *Trainer) network(ctx context.Context) (*classifier.Network, error) {
	if !t.opts.Resume {
		return classifier.New(t.opts.Model)
	}
	blob, err := t.store.Load(ctx)
	if errors.Is(err, domrepo.ErrArtifactNotFound) {
		t.l.Warn("no artifact to resume from, training from scratch",
			logger.String("location", t.store.Location()))
		return classifier.New(t.opts.Model)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact for resume: %w", err)
	}
	prev, err := artifact.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	cfg := prev.Model.Config()
	if cfg.SequenceLength != t.opts.Sequence.Length || cfg.Features != models.NumFeatures {
		return nil, &models.ShapeMismatchError{
			What:     "resumed model",
			WantRows: t.opts.Sequence.Length,
			WantCols: models.NumFeatures,
			GotRows:  cfg.SequenceLength,
			GotCols:  cfg.Features,
		}
	}
	t.l.Info("resuming from artifact", logger.String("artifact", prev.Meta.ID))
	return prev.Model, nil
}
