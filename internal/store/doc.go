// Package store persists IMDb ratings, episode listings, discovered title
// mappings and cached API responses in a single SQLite database.
//
// IMDb ids are stored as integers with the "tt" prefix stripped and are
// rendered back zero-padded to seven digits. Bulk loads go through staging
// tables so readers never observe a half-replaced dataset. Every write is
// retried briefly when SQLite reports the database as busy.
package store
