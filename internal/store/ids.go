package store

import (
	"fmt"
	"strconv"
	"strings"

	"imdbratings/internal/services"
)

// ParseIMDbID converts "tt0111161" to 111161.
func ParseIMDbID(id string) (int64, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(id), "tt")
	if !ok || digits == "" {
		return 0, fmt.Errorf("%w: imdb id %q must start with tt", services.ErrValidation, id)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: imdb id %q is not numeric", services.ErrValidation, id)
	}
	return n, nil
}

// FormatIMDbID renders an integer id with the tt prefix and at least seven
// digits.
func FormatIMDbID(n int64) string {
	return fmt.Sprintf("tt%07d", n)
}
