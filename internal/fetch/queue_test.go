package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"imdbratings/internal/logging"
)

func TestQueueCapsConcurrency(t *testing.T) {
	queue := NewQueue(2, 0, logging.NewNop())

	var inFlight, peak atomic.Int32
	task := func(context.Context) ([]byte, error) {
		n := inFlight.Add(1)
		for {
			current := peak.Load()
			if n <= current || peak.CompareAndSwap(current, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return []byte("ok"), nil
	}

	var wg sync.WaitGroup
	for range 7 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := queue.Do(context.Background(), task); err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", got)
	}
	if queue.Pending() != 0 {
		t.Fatalf("pending = %d after drain", queue.Pending())
	}
}

func TestQueueRunsBatchesInOrder(t *testing.T) {
	queue := NewQueue(1, 0, logging.NewNop())
	block := make(chan struct{})

	var mu sync.Mutex
	var order []int

	first := make(chan struct{})
	go func() {
		_, _ = queue.Do(context.Background(), func(context.Context) ([]byte, error) {
			close(first)
			<-block
			return nil, nil
		})
	}()
	<-first

	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = queue.Do(context.Background(), func(context.Context) ([]byte, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
		}()
		for queue.Pending() != i+1 {
			time.Sleep(time.Millisecond)
		}
	}
	close(block)
	wg.Wait()

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("order = %v, want FIFO", order)
	}
}

func TestQueueHonorsCallerCancellation(t *testing.T) {
	queue := NewQueue(1, 0, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := queue.Do(ctx, func(context.Context) ([]byte, error) {
		return []byte("ran"), nil
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestQueuePacesBatches(t *testing.T) {
	queue := NewQueue(1, 30*time.Millisecond, logging.NewNop())
	start := time.Now()
	for range 3 {
		if _, err := queue.Do(context.Background(), func(context.Context) ([]byte, error) { return nil, nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Fatalf("batches not paced: elapsed %v", elapsed)
	}
}
