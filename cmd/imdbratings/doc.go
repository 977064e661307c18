// Package main hosts the imdbratings CLI entrypoint and command graph.
//
// The Cobra command tree resolves content ids against the configured rating
// store, manages stored title mappings, loads the IMDb dataset, runs the
// addon server in the foreground and scaffolds configuration. Commands build
// their pipeline through internal/app so the CLI and the daemon resolve ids
// the same way.
package main
