package dataset

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"imdbratings/internal/config"
	"imdbratings/internal/logging"
	"imdbratings/internal/services"
	"imdbratings/internal/store"
)

// ErrIngestRunning reports that another process holds the ingest lock.
var ErrIngestRunning = fmt.Errorf("%w: dataset ingest already running", services.ErrTransient)

// Sink receives parsed dataset rows.
type Sink interface {
	ReplaceRatings(ctx context.Context, rows iter.Seq2[store.RatingRow, error], batchSize int) (int64, error)
	ReplaceEpisodes(ctx context.Context, rows iter.Seq2[store.EpisodeRow, error], batchSize int) (int64, error)
}

// Summary describes one completed ingest.
type Summary struct {
	Ratings  int64
	Episodes int64
	Duration time.Duration
}

// Ingester downloads and loads the dataset dumps.
type Ingester struct {
	cfg      config.Dataset
	dir      string
	lockPath string
	sink     Sink
	client   *http.Client
	logger   *slog.Logger
}

// NewIngester builds an ingester that stages downloads under dataDir.
func NewIngester(cfg config.Dataset, dataDir string, sink Sink, logger *slog.Logger) *Ingester {
	return &Ingester{
		cfg:      cfg,
		dir:      filepath.Join(dataDir, "downloads"),
		lockPath: filepath.Join(dataDir, "ingest.lock"),
		sink:     sink,
		client:   &http.Client{},
		logger:   logging.NewComponentLogger(logger, "dataset"),
	}
}

// Ingest runs a full refresh. It fails with ErrIngestRunning when another
// ingest holds the lock.
func (i *Ingester) Ingest(ctx context.Context) (Summary, error) {
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create download dir: %w", err)
	}
	lock := flock.New(i.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !ok {
		return Summary{}, ErrIngestRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			i.logger.Warn("failed to release ingest lock", logging.Error(err))
		}
	}()

	start := time.Now()
	i.logger.Info("dataset ingest started",
		logging.String("ratings_url", i.cfg.RatingsURL),
		logging.String("episodes_url", i.cfg.EpisodesURL))

	ratingsPath := filepath.Join(i.dir, "title.ratings.tsv.gz")
	episodesPath := filepath.Join(i.dir, "title.episode.tsv.gz")

	downloadCtx := ctx
	if i.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		downloadCtx, cancel = context.WithTimeout(ctx, time.Duration(i.cfg.DownloadTimeout)*time.Second)
		defer cancel()
	}
	group, groupCtx := errgroup.WithContext(downloadCtx)
	group.Go(func() error { return i.download(groupCtx, i.cfg.RatingsURL, ratingsPath) })
	group.Go(func() error { return i.download(groupCtx, i.cfg.EpisodesURL, episodesPath) })
	if err := group.Wait(); err != nil {
		return Summary{}, err
	}

	var summary Summary
	summary.Ratings, err = loadFile(ctx, ratingsPath, func(r io.Reader) (int64, error) {
		return i.sink.ReplaceRatings(ctx, ReadRatings(r), i.cfg.BatchSize)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("load ratings: %w", err)
	}
	i.logger.Info("ratings loaded", logging.Int64("count", summary.Ratings))

	summary.Episodes, err = loadFile(ctx, episodesPath, func(r io.Reader) (int64, error) {
		return i.sink.ReplaceEpisodes(ctx, ReadEpisodes(r), i.cfg.BatchSize)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("load episodes: %w", err)
	}
	summary.Duration = time.Since(start)

	i.logger.Info("dataset ingest finished",
		logging.Int64("ratings", summary.Ratings),
		logging.Int64("episodes", summary.Episodes),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

func (i *Ingester) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "dataset", "download", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrExternalTool, "dataset", "download",
			fmt.Sprintf("%s returned %d", rawURL, resp.StatusCode), nil)
	}

	partial := dest + ".part"
	file, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create %s: %w", partial, err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrExternalTool, "dataset", "download", rawURL, err)
	}
	if err := os.Rename(partial, dest); err != nil {
		return fmt.Errorf("move %s: %w", dest, err)
	}
	i.logger.Debug("dataset downloaded",
		logging.String("url", rawURL),
		logging.Int64("bytes", written))
	return nil
}

func loadFile(ctx context.Context, path string, load func(io.Reader) (int64, error)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return 0, fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
	}
	defer gz.Close()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return load(gz)
}
