package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"imdbratings/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imdbratings.log")
	writeLog(t, path, "a\nb\nc\npartial")

	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"b", "c"}},
		{n: 3, want: []string{"a", "b", "c"}},
		{n: 10, want: []string{"a", "b", "c"}},
		{n: 0, want: nil},
	}
	for _, tt := range tests {
		lines, offset, err := logs.Last(path, tt.n)
		if err != nil {
			t.Fatalf("Last(%d): %v", tt.n, err)
		}
		if !slices.Equal(lines, tt.want) {
			t.Fatalf("Last(%d) = %#v, want %#v", tt.n, lines, tt.want)
		}
		if tt.n > 0 && offset != int64(len("a\nb\nc\n")) {
			t.Fatalf("Last(%d) offset = %d, want the end of the last complete line", tt.n, offset)
		}
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "missing.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) add(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func waitFor(t *testing.T, c *collector, want []string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if slices.Equal(c.snapshot(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("followed lines = %#v, want %#v", c.snapshot(), want)
}

func TestFollowAppendsAndTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imdbratings.log")
	writeLog(t, path, "start\n")
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, c.add)
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\nhalf"); err != nil {
		t.Fatalf("append: %v", err)
	}
	waitFor(t, c, []string{"later"})
	if _, err := f.WriteString(" done\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()
	waitFor(t, c, []string{"later", "half done"})

	writeLog(t, path, "fresh\n")
	waitFor(t, c, []string{"later", "half done", "fresh"})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not stop after cancel")
	}
}
