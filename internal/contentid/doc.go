// Package contentid classifies opaque content identifiers into structured
// references.
//
// Three shapes are recognized, in priority order: Kitsu anime ids
// ("kitsu:7936", "kitsu:anime7936:12"), TMDB ids ("tmdb:1399",
// "tmdb:1399:1:3"), and IMDb tconsts ("tt0903747", "tt0903747:1:1"). The
// first matching shape wins. Season and episode values are kept exactly as the
// source catalog numbers them; aligning them with IMDb's own numbering is the
// job of the titles and ratings packages.
//
// The decoded input is always retained in Reference.OriginalID so callers can
// use it as a stable cache or grouping key.
package contentid
