package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PriceSignal/internal/domain/models"
	domsvc "PriceSignal/internal/domain/service"
	"PriceSignal/pkg/cache"
	"PriceSignal/pkg/logger"
)

// SignalService resolves a token, fetches its series and predicts. Results
// are cached per (token, interval, artifact) for ttl.
type SignalService struct {
	catalog   domsvc.TokenCatalog
	prices    domsvc.PriceProvider
	predictor *Predictor
	cache     cache.Service
	ttl       time.Duration
	timeout   time.Duration
	l         *logger.Logger
}

func NewSignalService(catalog domsvc.TokenCatalog, prices domsvc.PriceProvider, predictor *Predictor, c cache.Service, ttl time.Duration, l *logger.Logger) *SignalService {
	if l == nil {
		l = logger.Nop()
	}
	return &SignalService{
		catalog:   catalog,
		prices:    prices,
		predictor: predictor,
		cache:     c,
		ttl:       ttl,
		timeout:   20 * time.Second,
		l:         l,
	}
}

// Signal returns the prediction for one token at one interval.
func (s *SignalService) Signal(ctx context.Context, query string, iv models.Interval) (*models.Prediction, error) {
	if !iv.IsValid() {
		return nil, &models.MalformedInputError{Field: "interval", Index: -1, Reason: fmt.Sprintf("unsupported interval %q", iv)}
	}
	tok, err := s.catalog.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.signal(ctx, tok, iv)
}

// Signals fans out across every interval. Per-interval failures are
// collected in the result instead of failing the call.
func (s *SignalService) Signals(ctx context.Context, query string) (*models.AggregateSignals, error) {
	tok, err := s.catalog.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := &models.AggregateSignals{
		Symbol:      tok.Symbol,
		Timestamp:   time.Now().UTC(),
		Predictions: make(map[models.Interval]*models.Prediction, len(models.AllIntervals)),
		Errors:      map[models.Interval]string{},
	}

	type item struct {
		iv   models.Interval
		pred *models.Prediction
		err  error
	}
	ch := make(chan item, len(models.AllIntervals))
	var wg sync.WaitGroup
	for _, iv := range models.AllIntervals {
		wg.Add(1)
		go func(iv models.Interval) {
			defer wg.Done()
			p, err := s.signal(ctx, tok, iv)
			ch <- item{iv, p, err}
		}(iv)
	}
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.iv] = it.err.Error()
			continue
		}
		res.Predictions[it.iv] = it.pred
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

func (s *SignalService) signal(ctx context.Context, tok models.Token, iv models.Interval) (*models.Prediction, error) {
	a := s.predictor.Current()
	if a == nil {
		return nil, &models.NotFittedError{Component: "predictor"}
	}
	key := cache.GenerateKeyWithParams("signal", tok.Slug(), iv, a.Meta.ID)
	if s.cache != nil {
		var cached models.Prediction
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.l.Warn("signal cache read failed", logger.String("key", key), logger.Error(err))
		}
	}

	obs, err := s.prices.Series(ctx, tok, iv)
	if err != nil {
		return nil, err
	}
	pred, err := s.predictor.Predict(ctx, tok.Symbol, iv, obs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, key, pred, s.ttl); err != nil {
			s.l.Warn("signal cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return pred, nil
}
