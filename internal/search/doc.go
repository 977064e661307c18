// Package search is the candidate search boundary used by mapping
// discovery and the episode fallback chain.
//
// It wraps the TMDB, Kitsu and IMDb suggestion clients behind one Client and
// normalizes every result to RawCandidate, so scoring never sees a
// capability-specific shape. Every method fails soft: network, status and
// decode errors are logged and turned into an empty result.
package search
