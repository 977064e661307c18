// Package preflight provides readiness checks for the directories and
// external services imdbratings depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs each failure as a warning;
//     resolution still works in a degraded mode.
//   - The CLI "imdbratings status" command renders every result.
//
// Checks for optional capabilities are skipped when they are not configured.
package preflight
