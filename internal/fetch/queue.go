package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"imdbratings/internal/logging"
)

// Task performs one outbound call.
type Task func(ctx context.Context) ([]byte, error)

type job struct {
	ctx  context.Context
	task Task
	done chan result
}

type result struct {
	data []byte
	err  error
}

// Queue runs tasks in FIFO batches of at most batchSize concurrent calls.
// Batch starts are spaced by the configured delay. A drain goroutine runs
// only while work is pending.
type Queue struct {
	mu        sync.Mutex
	pending   []*job
	draining  bool
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewQueue creates a queue. A non-positive delay disables pacing.
func NewQueue(batchSize int, delay time.Duration, logger *slog.Logger) *Queue {
	if batchSize <= 0 {
		batchSize = 1
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Queue{
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logging.NewComponentLogger(logger, "fetch_queue"),
	}
}

// Do enqueues task and blocks until it has run or ctx is done. A task whose
// context ends while it waits is skipped when its batch comes up.
func (q *Queue) Do(ctx context.Context, task Task) ([]byte, error) {
	j := &job{ctx: ctx, task: task, done: make(chan result, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, j)
	start := !q.draining
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}

	select {
	case res := <-j.done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending reports the number of queued tasks not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) drain() {
	for {
		batch := q.next()
		if batch == nil {
			return
		}
		if err := q.limiter.Wait(context.Background()); err != nil {
			q.logger.Debug("batch pacing failed", logging.Error(err))
		}
		q.logger.Debug("running request batch", logging.Int("size", len(batch)))

		var group errgroup.Group
		for _, j := range batch {
			group.Go(func() error {
				if err := j.ctx.Err(); err != nil {
					j.done <- result{err: err}
					return nil
				}
				data, err := j.task(j.ctx)
				j.done <- result{data: data, err: err}
				return nil
			})
		}
		_ = group.Wait()
	}
}

func (q *Queue) next() []*job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		q.draining = false
		return nil
	}
	n := min(q.batchSize, len(q.pending))
	batch := q.pending[:n:n]
	q.pending = q.pending[n:]
	return batch
}
