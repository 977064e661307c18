package titles

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed data/alignment.json
var alignmentJSON []byte

// AlignmentTable maps an IMDb series id to per-season episode counts as the
// foreign catalogs split them. Index 0 is unused so counts[n] is season n.
type AlignmentTable map[string][]int

// ParseAlignmentTable decodes a JSON alignment table.
func ParseAlignmentTable(data []byte) (AlignmentTable, error) {
	var table AlignmentTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse alignment table: %w", err)
	}
	for id, counts := range table {
		for season, count := range counts[min(1, len(counts)):] {
			if count < 1 {
				return nil, fmt.Errorf("alignment table %s: season %d has no episodes", id, season+1)
			}
		}
	}
	return table, nil
}

// DefaultAlignment returns the built-in table.
func DefaultAlignment() AlignmentTable {
	table, err := ParseAlignmentTable(alignmentJSON)
	if err != nil {
		panic(err)
	}
	return table
}

// Align converts a seasonal episode number to (1, absolute) for series IMDb
// numbers as a single season. ok is false when the series has no table, the
// season lies beyond it, or the episode exceeds the season's count.
func (t AlignmentTable) Align(imdbID string, season, episode int) (alignedSeason, alignedEpisode int, ok bool) {
	counts, found := t[imdbID]
	if !found || season < 1 || season >= len(counts) {
		return 0, 0, false
	}
	if episode < 1 || episode > counts[season] {
		return 0, 0, false
	}
	absolute := episode
	for s := 1; s < season; s++ {
		absolute += counts[s]
	}
	return 1, absolute, true
}

var defaultAlignment = DefaultAlignment()

// HardcodedAlignment applies the built-in table.
func HardcodedAlignment(imdbID string, season, episode int) (int, int, bool) {
	return defaultAlignment.Align(imdbID, season, episode)
}
