package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PriceSignal/pkg/logger"
	"PriceSignal/pkg/queue"
)

// ErrRetrainRunning is returned when a local retrain is already in progress.
var ErrRetrainRunning = errors.New("retrain already running")

// RetrainDispatcher schedules a retrain and returns a job id.
type RetrainDispatcher interface {
	Dispatch(ctx context.Context, p RetrainPayload) (string, error)
}

// QueueDispatcher publishes retrains to the job queue.
type QueueDispatcher struct {
	pub queue.Publisher
}

func NewQueueDispatcher(pub queue.Publisher) *QueueDispatcher {
	return &QueueDispatcher{pub: pub}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, p RetrainPayload) (string, error) {
	id, err := d.pub.PublishMessage(ctx, RetrainJobType, p)
	if err != nil {
		return "", fmt.Errorf("enqueue retrain: %w", err)
	}
	return id, nil
}

// LocalDispatcher runs retrains in-process, one at a time. Used when no
// Redis queue is configured.
type LocalDispatcher struct {
	job *RetrainJob
	l   *logger.Logger
	mu  sync.Mutex
	wg  sync.WaitGroup
	run bool
}

func NewLocalDispatcher(job *RetrainJob, l *logger.Logger) *LocalDispatcher {
	if l == nil {
		l = logger.Nop()
	}
	return &LocalDispatcher{job: job, l: l}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, p RetrainPayload) (string, error) {
	d.mu.Lock()
	if d.run {
		d.mu.Unlock()
		return "", ErrRetrainRunning
	}
	d.run = true
	d.mu.Unlock()

	id := fmt.Sprintf("local-%d", time.Now().UnixNano())
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			d.run = false
			d.mu.Unlock()
		}()
		// the request context ends with the response
		if err := d.job.Run(context.Background(), p); err != nil {
			d.l.Error("local retrain failed", logger.String("job_id", id), logger.Error(err))
			return
		}
		d.l.Info("local retrain done", logger.String("job_id", id))
	}()
	return id, nil
}

// Wait blocks until the running retrain, if any, has finished.
func (d *LocalDispatcher) Wait() { d.wg.Wait() }
