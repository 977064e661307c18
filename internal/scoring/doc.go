// Package scoring ranks raw search candidates against what is known about the
// foreign title: its name, year, subtype, episode count and whether it is
// anime.
//
// Scores are additive points, comparable only within one call. Score sorts
// candidates best first and drops those rejected outright (movie candidates
// for an episodic title unless the title matches exactly and the candidate
// is animation). Accept applies the configured minimum, which is lower for
// cleaned query variants. The legacy scorer handles the unranked suggestion
// fallback.
package scoring
