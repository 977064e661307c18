package mapping

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"imdbratings/internal/logging"
)

//go:embed data/manual.json
var manualJSON []byte

// ManualEntry pins a foreign id to an IMDb id. Season, when set, replaces
// season inference; EpisodeOffset is added to the source episode number.
type ManualEntry struct {
	ForeignID     string `json:"foreign_id"`
	IMDbID        string `json:"imdb_id"`
	Season        int    `json:"season,omitempty"`
	EpisodeOffset int    `json:"episode_offset,omitempty"`
	Title         string `json:"title,omitempty"`
}

// ManualTable serves the compiled-in overrides merged with an optional user
// file. The user file is reloaded whenever its modification time changes
// and its entries win over built-in ones.
type ManualTable struct {
	builtin map[string]ManualEntry
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	loaded  time.Time
	user    map[string]ManualEntry
}

// DefaultManualEntries returns the compiled-in table.
func DefaultManualEntries() []ManualEntry {
	entries, err := ParseManualEntries(manualJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded manual mappings: %v", err))
	}
	return entries
}

// NewManualTable builds a table from entries and an optional user file path.
func NewManualTable(entries []ManualEntry, userPath string, logger *slog.Logger) *ManualTable {
	builtin := make(map[string]ManualEntry, len(entries))
	for _, entry := range entries {
		builtin[entry.ForeignID] = entry
	}
	return &ManualTable{
		builtin: builtin,
		path:    strings.TrimSpace(userPath),
		logger:  logging.NewComponentLogger(logger, "manual_mappings"),
	}
}

// Lookup returns the entry for a foreign id ("kitsu:7936").
func (t *ManualTable) Lookup(foreignID string) (ManualEntry, bool) {
	if t == nil {
		return ManualEntry{}, false
	}
	if err := t.ensureLoaded(); err != nil {
		logging.WarnWithContext(t.logger, "failed to load user mappings", "manual_mappings_load_failed",
			logging.String("path", t.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the JSON in the overrides file"),
			logging.String(logging.FieldImpact, "using built-in mappings only"))
	}
	key := strings.ToLower(strings.TrimSpace(foreignID))

	t.mu.RLock()
	defer t.mu.RUnlock()
	if entry, ok := t.user[key]; ok {
		return entry, true
	}
	entry, ok := t.builtin[key]
	return entry, ok
}

// Entries lists built-in and user entries, user entries replacing built-in
// ones with the same foreign id.
func (t *ManualTable) Entries() []ManualEntry {
	_ = t.ensureLoaded()
	t.mu.RLock()
	defer t.mu.RUnlock()
	merged := make(map[string]ManualEntry, len(t.builtin)+len(t.user))
	for k, v := range t.builtin {
		merged[k] = v
	}
	for k, v := range t.user {
		merged[k] = v
	}
	out := make([]ManualEntry, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	return out
}

func (t *ManualTable) ensureLoaded() error {
	if t.path == "" {
		return nil
	}
	info, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	t.mu.RLock()
	alreadyLoaded := !t.loaded.IsZero() && t.loaded.Equal(info.ModTime())
	t.mu.RUnlock()
	if alreadyLoaded {
		return nil
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return err
	}
	entries, err := ParseManualEntries(data)
	if err != nil {
		return err
	}
	user := make(map[string]ManualEntry, len(entries))
	for _, entry := range entries {
		user[entry.ForeignID] = entry
	}

	t.mu.Lock()
	t.user = user
	t.loaded = info.ModTime()
	t.mu.Unlock()
	t.logger.Info("loaded user mappings", logging.String("path", t.path), logging.Int("count", len(entries)))
	return nil
}

// ParseManualEntries decodes either a JSON array of entries or an object
// with a "mappings" array, tolerating a UTF-8 BOM.
func ParseManualEntries(data []byte) ([]ManualEntry, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var entries []ManualEntry
	if data[0] == '{' {
		var wrapper struct {
			Mappings []ManualEntry `json:"mappings"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		entries = wrapper.Mappings
	} else if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		if err := entries[i].normalize(); err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
	}
	return entries, nil
}

func (e *ManualEntry) normalize() error {
	e.ForeignID = strings.ToLower(strings.TrimSpace(e.ForeignID))
	e.IMDbID = strings.TrimSpace(e.IMDbID)
	e.Title = strings.TrimSpace(e.Title)
	if !strings.Contains(e.ForeignID, ":") {
		return fmt.Errorf("foreign id %q must look like platform:id", e.ForeignID)
	}
	if !strings.HasPrefix(e.IMDbID, "tt") {
		return fmt.Errorf("imdb id %q must start with tt", e.IMDbID)
	}
	if e.Season < 0 || e.EpisodeOffset < 0 {
		return fmt.Errorf("%s: season and episode offset must not be negative", e.ForeignID)
	}
	return nil
}
