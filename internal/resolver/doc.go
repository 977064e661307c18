// Package resolver turns a raw content id into a rating. It parses the id,
// maps foreign ids to IMDb through the mapping package, aligns Kitsu episode
// numbers to IMDb seasons, and walks the episode fallback chain.
//
// Failures never surface as errors past id parsing: every other outcome is
// a Result, either carrying a rating or marked NotFound with a reason.
package resolver
