// Package titles holds the text heuristics used while mapping foreign
// catalog entries onto IMDb: stripping season markers from titles to produce
// broader search queries, ordering title variants for search, inferring a
// season number from a title, and converting per-season episode numbers to
// absolute numbering for long-running series whose seasons IMDb does not
// split.
//
// The rule tables are plain data so callers can supply their own; the
// package-level helpers use the built-in defaults.
package titles
