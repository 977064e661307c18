package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const checkTimeout = 5 * time.Second

// DatasetProbe reports whether the local store holds any ratings.
type DatasetProbe interface {
	HasRatings(ctx context.Context) (bool, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDataset verifies that the local store has been loaded.
func CheckDataset(ctx context.Context, probe DatasetProbe) Result {
	const name = "IMDb dataset"

	if probe == nil {
		return Result{Name: name, Passed: true, Detail: "served by the remote ratings API"}
	}
	loaded, err := probe.HasRatings(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed (%v)", err)}
	}
	if !loaded {
		return Result{Name: name, Detail: "not loaded; run `imdbratings ingest`"}
	}
	return Result{Name: name, Passed: true, Detail: "Loaded"}
}

// CheckRatingsAPI verifies that the remote ratings API answers its health
// endpoint.
func CheckRatingsAPI(ctx context.Context, baseURL string) Result {
	const name = "Ratings API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	status, err := get(ctx, base+"/health", nil)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if status != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", status)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckTMDB verifies TMDB connectivity and that the API key is accepted.
func CheckTMDB(ctx context.Context, baseURL, apiKey string) Result {
	const name = "TMDB"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}
	query := url.Values{"api_key": {strings.TrimSpace(apiKey)}}
	status, err := get(ctx, base+"/configuration?"+query.Encode(), nil)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	switch status {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", status)}
	}
}

// CheckKitsu verifies that the Kitsu API answers a one-item listing.
func CheckKitsu(ctx context.Context, baseURL string) Result {
	const name = "Kitsu"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	headers := map[string]string{"Accept": "application/vnd.api+json"}
	status, err := get(ctx, base+"/anime?page%5Blimit%5D=1", headers)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if status != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("listing failed (%d)", status)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func get(ctx context.Context, target string, headers map[string]string) (int, error) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	client := &http.Client{Timeout: checkTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// summarizeError produces a short, key-free summary of a failed request.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Sprintf("unreachable (%v)", urlErr.Err)
	}
	return err.Error()
}
