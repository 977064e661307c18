package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"imdbratings/internal/daemon"
	"imdbratings/internal/dataset"
	"imdbratings/internal/logging"
	"imdbratings/internal/testsupport"
)

type fakeIngester struct {
	calls atomic.Int32
	done  chan struct{}
	err   error
}

func (f *fakeIngester) Ingest(context.Context) (dataset.Summary, error) {
	f.calls.Add(1)
	if f.done != nil {
		defer close(f.done)
	}
	if f.err != nil {
		return dataset.Summary{}, f.err
	}
	return dataset.Summary{Ratings: 3, Episodes: 1, Duration: time.Millisecond}, nil
}

type fakeStore struct {
	hasRatings bool
	cleaned    atomic.Int32
}

func (f *fakeStore) HasRatings(context.Context) (bool, error) { return f.hasRatings, nil }

func (f *fakeStore) CacheCleanup(context.Context) (int64, error) {
	f.cleaned.Add(1)
	return 4, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, okHandler(), daemon.Options{Store: &fakeStore{hasRatings: true}}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.APIAddress == "" {
		t.Fatal("expected a listening address")
	}
	resp, err := http.Get("http://" + status.APIAddress + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, err := daemon.New(cfg, okHandler(), daemon.Options{}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := other.Start(ctx); err != nil {
		t.Fatalf("Start after release failed: %v", err)
	}
	other.Stop()
}

func TestDaemonInitialIngestWhenStoreEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ingester := &fakeIngester{done: make(chan struct{})}
	d, err := daemon.New(cfg, okHandler(), daemon.Options{Ingester: ingester, Store: &fakeStore{}}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-ingester.done:
	case <-time.After(5 * time.Second):
		t.Fatal("initial ingest did not run")
	}
	d.Stop()

	last := d.Status().LastIngest
	if last.Trigger != "initial" || last.Summary.Ratings != 3 || last.Err != "" {
		t.Fatalf("unexpected ingest status: %+v", last)
	}
}

func TestDaemonSkipsInitialIngestWhenLoaded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ingester := &fakeIngester{}
	d, err := daemon.New(cfg, okHandler(), daemon.Options{Ingester: ingester, Store: &fakeStore{hasRatings: true}}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()
	if n := ingester.calls.Load(); n != 0 {
		t.Fatalf("ingest ran %d times, want 0", n)
	}
}

func TestDaemonManualIngestAndCleanup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := &fakeStore{hasRatings: true}
	ingester := &fakeIngester{err: errors.New("download failed")}
	d, err := daemon.New(cfg, okHandler(), daemon.Options{Ingester: ingester, Store: store}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	if _, err := d.Ingest(context.Background(), "manual"); err == nil {
		t.Fatal("expected ingest error")
	}
	if last := d.Status().LastIngest; last.Trigger != "manual" || last.Err != "download failed" {
		t.Fatalf("unexpected ingest status: %+v", last)
	}

	removed, err := d.CleanupCache(context.Background())
	if err != nil || removed != 4 || store.cleaned.Load() != 1 {
		t.Fatalf("CleanupCache = %d, %v", removed, err)
	}
}

func TestDaemonRejectsInvalidSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Dataset.RefreshSchedule = "not a schedule"
	d, err := daemon.New(cfg, okHandler(), daemon.Options{Ingester: &fakeIngester{}}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("expected invalid schedule to fail start")
	}
	if d.Status().Running {
		t.Fatal("daemon should not be running after a failed start")
	}
}

func TestDaemonWithoutLocalStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, okHandler(), daemon.Options{}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if _, err := d.Ingest(context.Background(), "manual"); err == nil {
		t.Fatal("expected ingest to be unavailable")
	}
	if _, err := d.CleanupCache(context.Background()); err == nil {
		t.Fatal("expected cleanup to be unavailable")
	}
}
