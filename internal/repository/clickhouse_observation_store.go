package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	pkgch "PriceSignal/pkg/clickhouse"
	applogger "PriceSignal/pkg/logger"
)

const observationsTable = "observations"

// observationSchema is idempotent; ReplacingMergeTree collapses redelivered
// messages with the same (symbol, ts).
var observationSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
        ts      DateTime64(3, 'UTC'),
        symbol  LowCardinality(String),
        close   Float64,
        volume  Float64,
        ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
    ) ENGINE = ReplacingMergeTree(ingested_at)
    ORDER BY (symbol, ts)`,
}

// CHObservationStore implements ObservationStore backed by ClickHouse.
type CHObservationStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.ObservationStore = (*CHObservationStore)(nil)

func NewCHObservationStore(ch *pkgch.Client) *CHObservationStore {
	return &CHObservationStore{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHObservationStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHObservationStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, observationSchema)
}

func (s *CHObservationStore) StoreBatch(ctx context.Context, symbol string, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	start := time.Now()
	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		if o.Timestamp.IsZero() {
			continue
		}
		rows = append(rows, []any{o.Timestamp.UTC(), symbol, o.Close, o.Volume})
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, close, volume)", observationsTable)
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_observations error",
				applogger.String("symbol", symbol),
				applogger.Int("rows", len(rows)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store observations: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse store_observations ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(rows)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// History returns observations for symbol in [from, to], oldest first.
// A zero to means now.
func (s *CHObservationStore) History(ctx context.Context, symbol string, from, to time.Time) ([]models.Observation, error) {
	start := time.Now()
	if to.IsZero() {
		to = time.Now().UTC()
	}
	const qtpl = `
        SELECT ts, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, observationsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC())
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse history query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]models.Observation, 0, 1024)
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Timestamp, &o.Close, &o.Volume); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Timestamp = o.Timestamp.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse history ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHObservationStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHObservationStore) Close() error {
	return nil // Managed by pkg
}
