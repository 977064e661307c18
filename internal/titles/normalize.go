package titles

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	trailingSeparator = regexp.MustCompile(`[\s:\-–,]+$`)
)

// seasonMarkers are tried in order; each one that matches yields one cleaned
// variant with only that marker removed.
var seasonMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[:\-–]?\s*\bseason\s*\d+\b`),
	regexp.MustCompile(`(?i)\s*[:\-–]?\s*\b\d+(?:st|nd|rd|th)\s+(?:season|series)\b`),
	regexp.MustCompile(`(?i)\s*[:\-–]?\s*\b(?:part|cour|vol\.?|volume)\s*\d+\b`),
	regexp.MustCompile(`(?i)\s*[:\-–]?\s*\b(?:book|chapter)\s*\d+\b`),
	regexp.MustCompile(`\s*[:\-–]?\s*第\s*[0-9一二三四五六七八九十]+\s*(?:期|季|シーズン|部|章)`),
	regexp.MustCompile(`\s+(?:II|III|IV|V|VI|VII|VIII|IX|X)$`),
	regexp.MustCompile(`\s+\d{1,2}$`),
}

// Fold converts full-width forms to their narrow equivalents and collapses
// whitespace.
func Fold(title string) string {
	folded := width.Fold.String(title)
	folded = whitespacePattern.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// CleanVariants returns the title followed by one variant per matching season
// marker, each with exactly one marker stripped. Empty and duplicate variants
// are dropped.
func CleanVariants(title string) []string {
	base := Fold(title)
	if base == "" {
		return nil
	}
	variants := []string{base}
	seen := map[string]struct{}{strings.ToLower(base): {}}
	for _, marker := range seasonMarkers {
		loc := marker.FindStringIndex(base)
		if loc == nil {
			continue
		}
		cleaned := base[:loc[0]] + " " + base[loc[1]:]
		cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
		cleaned = trailingSeparator.ReplaceAllString(strings.TrimSpace(cleaned), "")
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, cleaned)
	}
	return variants
}

// Prioritize deduplicates titles case-insensitively and orders them so plain
// ASCII titles come first, then fewer words, then shorter strings. Input
// order breaks remaining ties.
func Prioritize(titles []string) []string {
	type entry struct {
		title  string
		ascii  bool
		words  int
		length int
	}
	seen := make(map[string]struct{}, len(titles))
	entries := make([]entry, 0, len(titles))
	for _, raw := range titles {
		title := Fold(raw)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, entry{
			title:  title,
			ascii:  isASCII(title),
			words:  len(strings.Fields(title)),
			length: len([]rune(title)),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ascii != b.ascii {
			return a.ascii
		}
		if a.words != b.words {
			return a.words < b.words
		}
		return a.length < b.length
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.title
	}
	return out
}

func isASCII(value string) bool {
	for _, r := range value {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
