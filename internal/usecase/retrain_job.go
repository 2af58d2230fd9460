package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/pkg/logger"
	"PriceSignal/pkg/queue"
)

// RetrainJobType is the queue message type handled by RetrainJob.
const RetrainJobType = "model.retrain"

// RetrainPayload selects the data source and overrides for one retrain.
type RetrainPayload struct {
	CSVPath string `json:"csv_path,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Epochs  int    `json:"epochs,omitempty"`
	Resume  bool   `json:"resume,omitempty"`
}

// RetrainJob trains a new artifact from the queue and reloads the predictor.
type RetrainJob struct {
	base      TrainerOptions
	store     domrepo.ArtifactStore
	history   domrepo.HistorySource // nil when ClickHouse is disabled
	predictor *Predictor
	metrics   domrepo.Metrics
	l         *logger.Logger
	dataDir   string
}

var _ queue.Job = (*RetrainJob)(nil)

func NewRetrainJob(base TrainerOptions, store domrepo.ArtifactStore, history domrepo.HistorySource, predictor *Predictor, m domrepo.Metrics, l *logger.Logger) *RetrainJob {
	if l == nil {
		l = logger.Nop()
	}
	return &RetrainJob{base: base, store: store, history: history, predictor: predictor, metrics: m, l: l}
}

// WithDataDir confines CSV payloads to dir.
func (j *RetrainJob) WithDataDir(dir string) *RetrainJob {
	j.dataDir = dir
	return j
}

func (j *RetrainJob) Name() string { return "retrain" }
func (j *RetrainJob) Type() string { return RetrainJobType }

func (j *RetrainJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[RetrainPayload](payload)
	if err != nil {
		return err
	}
	return j.Run(ctx, *p)
}

// Run executes one retrain synchronously.
func (j *RetrainJob) Run(ctx context.Context, p RetrainPayload) error {
	opts := j.base
	if p.Epochs > 0 {
		opts.Train.Epochs = p.Epochs
	}
	opts.Resume = p.Resume
	t := NewTrainer(j.store, j.metrics, j.l, opts)

	var err error
	switch {
	case p.CSVPath != "":
		path := p.CSVPath
		if j.dataDir != "" {
			if path, err = ResolveDataPath(j.dataDir, path); err != nil {
				return fmt.Errorf("retrain: %w", err)
			}
		}
		err = t.LoadCSV(ctx, path)
	case p.Symbol != "":
		if j.history == nil {
			return fmt.Errorf("retrain %s: no history source configured", p.Symbol)
		}
		err = t.LoadHistory(ctx, j.history, p.Symbol, time.Time{}, time.Time{})
	default:
		return fmt.Errorf("retrain: csv_path or symbol is required")
	}
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}

	art, err := t.Train(ctx)
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}
	if err := j.predictor.Reload(ctx); err != nil {
		return fmt.Errorf("retrain: reload %s: %w", art.Meta.ID, err)
	}
	return nil
}
