package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imdbratings/internal/logging"
)

func TestDefaultManualEntries(t *testing.T) {
	table := NewManualTable(DefaultManualEntries(), "", logging.NewNop())

	entry, ok := table.Lookup("kitsu:7936")
	if !ok || entry.IMDbID != "tt0417299" {
		t.Fatalf("kitsu:7936 = %+v, %v", entry, ok)
	}
	entry, ok = table.Lookup("KITSU:45866")
	if !ok {
		t.Fatal("expected case-insensitive lookup of kitsu:45866")
	}
	if entry.IMDbID != "tt9335498" || entry.Season != 4 || entry.EpisodeOffset != 12 {
		t.Fatalf("kitsu:45866 = %+v", entry)
	}
	if _, ok := table.Lookup("kitsu:1"); ok {
		t.Fatal("unexpected entry for kitsu:1")
	}
}

func TestManualTableUserOverridesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	writeOverrides(t, path, `[{"foreign_id":"kitsu:7936","imdb_id":"tt0000001"}]`, time.Unix(1_700_000_000, 0))

	table := NewManualTable(DefaultManualEntries(), path, logging.NewNop())
	entry, ok := table.Lookup("kitsu:7936")
	if !ok || entry.IMDbID != "tt0000001" {
		t.Fatalf("user override not applied: %+v, %v", entry, ok)
	}

	writeOverrides(t, path, `{"mappings":[{"foreign_id":"kitsu:99","imdb_id":"tt0000099","episode_offset":3}]}`, time.Unix(1_700_000_100, 0))
	entry, ok = table.Lookup("kitsu:7936")
	if !ok || entry.IMDbID != "tt0417299" {
		t.Fatalf("built-in entry not restored after reload: %+v", entry)
	}
	entry, ok = table.Lookup("kitsu:99")
	if !ok || entry.EpisodeOffset != 3 {
		t.Fatalf("reloaded entry missing: %+v, %v", entry, ok)
	}
}

func TestManualTableBrokenUserFileKeepsBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	writeOverrides(t, path, `{not json`, time.Unix(1_700_000_000, 0))

	table := NewManualTable(DefaultManualEntries(), path, logging.NewNop())
	if entry, ok := table.Lookup("kitsu:7936"); !ok || entry.IMDbID != "tt0417299" {
		t.Fatalf("built-in lookup failed with broken user file: %+v, %v", entry, ok)
	}
}

func TestParseManualEntries(t *testing.T) {
	entries, err := ParseManualEntries([]byte("\xEF\xBB\xBF[{\"foreign_id\":\" Kitsu:5 \",\"imdb_id\":\"tt5\"}]"))
	if err != nil {
		t.Fatalf("ParseManualEntries returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].ForeignID != "kitsu:5" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad imdb id", `[{"foreign_id":"kitsu:1","imdb_id":"nm1"}]`, "must start with tt"},
		{"bare foreign id", `[{"foreign_id":"7936","imdb_id":"tt1"}]`, "platform:id"},
		{"negative offset", `[{"foreign_id":"kitsu:1","imdb_id":"tt1","episode_offset":-1}]`, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManualEntries([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func writeOverrides(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}
