package titles

import (
	"regexp"
	"strconv"
	"strings"
)

// SeasonRule recognizes one way a title can carry a season number.
type SeasonRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Extract converts the submatches into a season number.
	Extract func(match []string) (int, bool)
	// Validate, when set, can veto a match using the whole title.
	Validate func(title string, match []string, season int) bool
}

// SeasonRules is an ordered rule table. The first rule whose pattern matches
// and whose validator accepts wins.
type SeasonRules struct {
	Rules []SeasonRule
}

var (
	romanValues = map[string]int{
		"II": 2, "III": 3, "IV": 4, "V": 5, "VI": 6, "VII": 7, "VIII": 8, "IX": 9, "X": 10,
	}
	kanjiValues = map[string]int{
		"一": 1, "二": 2, "三": 3, "四": 4, "五": 5, "六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	}
	ordinalWords = map[string]int{
		"second": 2, "third": 3, "fourth": 4, "fifth": 5, "sixth": 6,
		"seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	}
)

// SequelKeywords mark a trailing "X" as a numeral rather than part of a name.
var SequelKeywords = []string{"season", "saga", "generation", "part", "series", "sequel", "arc", "cour", "chapter"}

// FranchiseKeywords are fragments of long-running franchises whose entries
// commonly carry a bare trailing number.
var FranchiseKeywords = []string{
	"attack on titan", "my hero academia", "boku no hero", "dragon ball", "gundam",
	"pokemon", "digimon", "pretty cure", "precure", "sword art online", "one punch man",
	"mob psycho", "overlord", "k-on", "haikyu", "kuroko", "yu-gi-oh", "danmachi",
	"re:zero", "konosuba", "tokyo ghoul", "food wars", "shield hero", "demon slayer",
	"jujutsu kaisen", "bungo stray dogs", "love live", "idolmaster", "initial d",
}

// DefaultSeasonRules returns the built-in rule table in priority order:
// explicit markers, CJK markers, ordinals, trailing Roman numerals, then bare
// trailing integers.
func DefaultSeasonRules() SeasonRules {
	return SeasonRules{Rules: []SeasonRule{
		{
			Name:    "explicit",
			Pattern: regexp.MustCompile(`(?i)\b(?:season|part|book|chapter|cour)\s*(\d+)\b`),
			Extract: atoiGroup,
		},
		{
			Name:    "cjk",
			Pattern: regexp.MustCompile(`第\s*([0-9]+|[一二三四五六七八九十])\s*(?:期|季|シーズン|部|章)`),
			Extract: func(match []string) (int, bool) {
				if n, ok := kanjiValues[match[1]]; ok {
					return n, true
				}
				return atoiGroup(match)
			},
		},
		{
			Name:    "ordinal",
			Pattern: regexp.MustCompile(`(?i)\b(\d+)(?:st|nd|rd|th)\s+(?:season|series)\b`),
			Extract: atoiGroup,
		},
		{
			Name:    "ordinal_word",
			Pattern: regexp.MustCompile(`(?i)\b(second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\s+season\b`),
			Extract: func(match []string) (int, bool) {
				n, ok := ordinalWords[strings.ToLower(match[1])]
				return n, ok
			},
		},
		{
			Name:    "roman",
			Pattern: regexp.MustCompile(`\s(II|III|IV|V|VI|VII|VIII|IX|X)$`),
			Extract: func(match []string) (int, bool) {
				n, ok := romanValues[match[1]]
				return n, ok
			},
			Validate: validateRoman,
		},
		{
			Name:     "trailing_number",
			Pattern:  regexp.MustCompile(`\s(\d{1,2})$`),
			Extract:  atoiGroup,
			Validate: func(title string, _ []string, season int) bool {
				return season >= 2 && season <= 10 && containsAny(strings.ToLower(title), FranchiseKeywords)
			},
		},
	}}
}

var defaultSeasonRules = DefaultSeasonRules()

// InferSeason applies the default rules. Titles without a recognizable
// marker are season 1.
func InferSeason(title string) int {
	return defaultSeasonRules.Infer(title)
}

// Infer returns the season carried by title, or 1 when no rule accepts.
func (r SeasonRules) Infer(title string) int {
	folded := Fold(title)
	if folded == "" {
		return 1
	}
	for _, rule := range r.Rules {
		match := rule.Pattern.FindStringSubmatch(folded)
		if match == nil {
			continue
		}
		season, ok := rule.Extract(match)
		if !ok || season < 1 {
			continue
		}
		if rule.Validate != nil && !rule.Validate(folded, match, season) {
			continue
		}
		return season
	}
	return 1
}

// validateRoman rejects a lone trailing "X" that reads as part of a name,
// such as "Generation X". A two-word title ending in X is treated as a
// proper noun; longer titles need a sequel keyword outside the word the X
// attaches to.
func validateRoman(title string, match []string, _ int) bool {
	if match[1] != "X" {
		return true
	}
	words := strings.Fields(title)
	if len(words) <= 2 {
		return false
	}
	context := strings.ToLower(strings.Join(words[:len(words)-2], " "))
	return containsAny(context, SequelKeywords)
}

func atoiGroup(match []string) (int, bool) {
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func containsAny(value string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(value, needle) {
			return true
		}
	}
	return false
}
