// Package ratings defines rating records, title mappings and the store
// contract they are read from, plus the episode rating fallback chain.
//
// Many anime series are catalogued by IMDb as one continuous season while
// source catalogs split them into arcs. EpisodeResolver therefore tries a
// direct lookup, then a per-title alignment table, then a bounded numeric
// estimate, then a title search for the episode id, and finally the series
// rating, tagged as a fallback.
package ratings
