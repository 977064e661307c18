package scoring

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// TitleVariant maps an alternate name onto its base title. Both sides are
// compared after normalization.
type TitleVariant struct {
	From string
	To   string
}

// DefaultTitleVariants lists romanized names whose English title is what
// search capabilities index.
var DefaultTitleVariants = []TitleVariant{
	{"shingeki no kyojin", "attack on titan"},
	{"boku no hero academia", "my hero academia"},
	{"kimetsu no yaiba", "demon slayer"},
	{"hagane no renkinjutsushi", "fullmetal alchemist"},
	{"kaguya sama wa kokurasetai", "kaguya sama love is war"},
	{"yakusoku no neverland", "the promised neverland"},
	{"kono subarashii sekai ni shukufuku wo", "konosuba"},
	{"tensei shitara slime datta ken", "that time i got reincarnated as a slime"},
	{"re zero kara hajimeru isekai seikatsu", "re zero starting life in another world"},
	{"shingeki no bahamut", "rage of bahamut"},
}

func variantTable(variants []TitleVariant) map[string]string {
	table := make(map[string]string, len(variants))
	for _, v := range variants {
		table[normalizeTitle(v.From)] = normalizeTitle(v.To)
	}
	return table
}

// normalizeTitle lowercases, folds width, strips diacritics and punctuation,
// and collapses whitespace.
func normalizeTitle(title string) string {
	t := transform.Chain(width.Fold, norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "&", " and ")
	folded = nonWordPattern.ReplaceAllString(folded, " ")
	folded = whitespacePattern.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// baseTitle reduces a title to its known base name: the part before any
// subtitle separator, normalized, with variant names substituted.
func baseTitle(title string, variants map[string]string) string {
	if idx := strings.IndexAny(title, ":："); idx > 0 {
		title = title[:idx]
	}
	normalized := normalizeTitle(title)
	if base, ok := variants[normalized]; ok {
		return base
	}
	return normalized
}
