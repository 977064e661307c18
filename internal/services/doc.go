// Package services defines shared utilities consumed by the resolution
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp content identifiers, platforms, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent HTTP statuses and log classifications.
//
// Use these helpers when wiring new resolution logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
