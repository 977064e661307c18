// Package dataset loads the public IMDb dataset dumps (title.ratings and
// title.episode, gzipped TSV) into the rating store.
//
// Both dumps are downloaded in parallel to the data directory, then
// streamed into the store: ratings first, then episodes, keeping only the
// episodes that have a rating. An ingest lock file prevents two processes
// from loading at the same time.
package dataset
