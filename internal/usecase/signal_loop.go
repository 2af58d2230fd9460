package usecase

import (
	"context"
	"sync"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/pkg/logger"
)

// Watch is one (token, interval) pair evaluated on every tick.
type Watch struct {
	Symbol   string
	Interval models.Interval
}

// SignalLoop periodically computes signals for its watches and hands each
// one to every publisher. A failing watch or publisher is logged and skipped.
type SignalLoop struct {
	svc        *SignalService
	watches    []Watch
	every      time.Duration
	publishers []domrepo.SignalPublisher
	metrics    domrepo.Metrics
	l          *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSignalLoop(svc *SignalService, watches []Watch, every time.Duration, publishers []domrepo.SignalPublisher, m domrepo.Metrics, l *logger.Logger) *SignalLoop {
	if l == nil {
		l = logger.Nop()
	}
	return &SignalLoop{svc: svc, watches: watches, every: every, publishers: publishers, metrics: m, l: l}
}

// Start runs one pass immediately and then one per tick until Stop.
func (s *SignalLoop) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
	s.l.Info("signal loop started", logger.Int("watches", len(s.watches)), logger.Duration("every_ms", s.every))
}

// Stop cancels the loop and waits for the current pass to finish.
func (s *SignalLoop) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
		s.l.Info("signal loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce evaluates every watch and returns how many signals were published.
func (s *SignalLoop) RunOnce(ctx context.Context) int {
	published := 0
	for _, w := range s.watches {
		if ctx.Err() != nil {
			break
		}
		pred, err := s.svc.Signal(ctx, w.Symbol, w.Interval)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordError("signal_loop")
			}
			s.l.Warn("signal computation failed",
				logger.String("symbol", w.Symbol),
				logger.String("interval", string(w.Interval)),
				logger.Error(err))
			continue
		}
		for _, p := range s.publishers {
			if err := p.Publish(ctx, pred); err != nil {
				if s.metrics != nil {
					s.metrics.RecordError("signal_publish")
				}
				s.l.Warn("signal publish failed",
					logger.String("symbol", pred.Symbol),
					logger.Error(err))
			}
		}
		published++
		s.l.Debug("signal published",
			logger.String("symbol", pred.Symbol),
			logger.String("interval", string(pred.Interval)),
			logger.String("signal", pred.Signal.String()))
	}
	return published
}
