package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
)

// testOptions keeps the real window geometry but a tiny network.
func testOptions() TrainerOptions {
	opts := DefaultTrainerOptions()
	opts.Model.Hidden = 4
	opts.Train.Epochs = 1
	opts.Train.BatchSize = 16
	return opts
}

// series is a noisy uptrend with swings wide enough to hit all three classes.
func series(n int) []models.Observation {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]models.Observation, n)
	for i := range obs {
		x := float64(i)
		obs[i] = models.Observation{
			Timestamp: t0.Add(time.Duration(i) * 24 * time.Hour),
			Close:     100 + 0.2*x + 3*math.Sin(x/3),
			Volume:    1000 + 50*math.Cos(x/5),
		}
	}
	return obs
}

// trainedBlob trains once on a fresh store and returns the encoded artifact.
func trainedBlob(t *testing.T) []byte {
	t.Helper()
	store := &memStore{}
	tr := NewTrainer(store, nil, nil, testOptions())
	if err := tr.LoadObservations(series(150), "fixture"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := tr.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}
	return store.get()
}

type memStore struct {
	mu      sync.Mutex
	blob    []byte
	saveErr error
	saves   int
}

func (s *memStore) Save(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	s.blob = append([]byte(nil), blob...)
	s.saves++
	return nil
}

func (s *memStore) Load(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob == nil {
		return nil, domrepo.ErrArtifactNotFound
	}
	return append([]byte(nil), s.blob...), nil
}

func (s *memStore) Location() string { return "mem://test" }

func (s *memStore) get() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob
}

var errUnknownToken = errors.New("unknown token")

type fakeCatalog struct {
	tokens map[string]models.Token
}

func (c *fakeCatalog) Resolve(_ context.Context, q string) (models.Token, error) {
	if tok, ok := c.tokens[q]; ok {
		return tok, nil
	}
	return models.Token{}, errUnknownToken
}

func (c *fakeCatalog) Search(_ context.Context, _ string, limit int) ([]models.Token, error) {
	var out []models.Token
	for _, tok := range c.tokens {
		if len(out) == limit {
			break
		}
		out = append(out, tok)
	}
	return out, nil
}

type fakePrices struct {
	obs    []models.Observation
	failOn map[models.Interval]error
	calls  atomic.Int32
}

func (p *fakePrices) Series(_ context.Context, _ models.Token, iv models.Interval) ([]models.Observation, error) {
	p.calls.Add(1)
	if err := p.failOn[iv]; err != nil {
		return nil, err
	}
	return p.obs, nil
}

type fakeObservationStore struct {
	mu       sync.Mutex
	stored   map[string][]models.Observation
	history  []models.Observation
	storeErr error
	gate     chan struct{} // History blocks on it when set
}

func (s *fakeObservationStore) History(ctx context.Context, _ string, _, _ time.Time) ([]models.Observation, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.history, nil
}

func (s *fakeObservationStore) Init(context.Context) error { return nil }

func (s *fakeObservationStore) StoreBatch(_ context.Context, symbol string, obs []models.Observation) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		s.stored = map[string][]models.Observation{}
	}
	s.stored[symbol] = append(s.stored[symbol], obs...)
	return nil
}

func (s *fakeObservationStore) Health(context.Context) error { return nil }
func (s *fakeObservationStore) Close() error                 { return nil }

type recordingPublisher struct {
	mu   sync.Mutex
	got  []*models.Prediction
	fail error
}

func (p *recordingPublisher) Publish(_ context.Context, pred *models.Prediction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, pred)
	return p.fail
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}
