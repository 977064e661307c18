package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"imdbratings/internal/logging"
	"imdbratings/internal/services"
)

const maxBodyBytes = 8 << 20

// ErrNotFound reports a 404 from the remote service.
var ErrNotFound = errors.New("remote resource not found")

// Getter fetches the body of a URL.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// PersistentCache mirrors responses across restarts.
type PersistentCache interface {
	CacheGet(ctx context.Context, key string) ([]byte, bool, error)
	CachePut(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Options configures a Fetcher. Zero values pick sensible defaults.
type Options struct {
	HTTPClient *http.Client
	Cache      Cache
	Persistent PersistentCache
	// PersistentTTL is the lifetime of mirrored responses.
	PersistentTTL time.Duration
	Queue         *Queue
	Logger        *slog.Logger
}

// Fetcher resolves GET requests through the memory cache, the optional
// persistent cache, and finally the request queue.
type Fetcher struct {
	client        *http.Client
	cache         Cache
	persistent    PersistentCache
	persistentTTL time.Duration
	queue         *Queue
	headers       http.Header
	logger        *slog.Logger
}

var _ Getter = (*Fetcher)(nil)

// New builds a Fetcher.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:        opts.HTTPClient,
		cache:         opts.Cache,
		persistent:    opts.Persistent,
		persistentTTL: opts.PersistentTTL,
		queue:         opts.Queue,
		headers:       http.Header{"Accept": []string{"application/json"}},
		logger:        logging.NewComponentLogger(opts.Logger, "fetch"),
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 10 * time.Second}
	}
	if f.cache == nil {
		f.cache = NewMemoryCache(time.Hour, 500, nil)
	}
	if f.queue == nil {
		f.queue = NewQueue(5, 0, opts.Logger)
	}
	if f.persistentTTL <= 0 {
		f.persistentTTL = time.Hour
	}
	return f
}

// WithHeader returns a Fetcher sharing caches and queue that sends an extra
// request header.
func (f *Fetcher) WithHeader(key, value string) *Fetcher {
	clone := *f
	clone.headers = f.headers.Clone()
	clone.headers.Set(key, value)
	return &clone
}

// Get returns the response body for rawURL. Non-2xx responses are errors
// and are not cached; a 404 wraps ErrNotFound.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	key := CacheKey(rawURL)
	if data, ok := f.cache.Get(key); ok {
		return data, nil
	}
	if f.persistent != nil {
		data, ok, err := f.persistent.CacheGet(ctx, key)
		if err != nil {
			f.logger.Debug("persistent cache read failed", logging.String("key", key), logging.Error(err))
		} else if ok {
			f.cache.Put(key, data)
			return data, nil
		}
	}

	data, err := f.queue.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return f.fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}

	f.cache.Put(key, data)
	if f.persistent != nil {
		if err := f.persistent.CachePut(ctx, key, data, f.persistentTTL); err != nil {
			f.logger.Debug("persistent cache write failed", logging.String("key", key), logging.Error(err))
		}
	}
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = f.headers.Clone()

	requestStart := time.Now()
	resp, err := f.client.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "get",
			fmt.Sprintf("request %s failed (latency=%v)", CacheKey(rawURL), latency), err)
	}
	defer resp.Body.Close()

	f.logger.Debug("outbound request",
		logging.String("url", CacheKey(rawURL)),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency))

	if resp.StatusCode == http.StatusNotFound {
		return nil, services.Wrap(services.ErrNotFound, "fetch", "get", CacheKey(rawURL), ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "get",
			fmt.Sprintf("%s returned %d", CacheKey(rawURL), resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "read body", CacheKey(rawURL), err)
	}
	return data, nil
}

// CacheKey strips credentials from a request URL so keys are safe to log
// and persist.
func CacheKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if !query.Has("api_key") {
		return rawURL
	}
	query.Del("api_key")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
