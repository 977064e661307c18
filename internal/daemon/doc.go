// Package daemon coordinates the long-running imdbratings server process.
//
// It wires the HTTP handler, the dataset ingester and the local rating
// store into a single lifecycle with flock-based locking to prevent multiple
// instances. Scheduled work (dataset refresh and api_cache cleanup) runs on
// robfig/cron schedules taken from the [dataset] config section, and an
// initial ingest is started when the local store has no ratings yet.
//
// Keep orchestration logic here: request handling lives in internal/api and
// dataset parsing in internal/dataset, while the daemon focuses on startup,
// shutdown and scheduling.
package daemon
