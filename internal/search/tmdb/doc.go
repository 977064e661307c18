// Package tmdb provides the minimal TMDB API client used for candidate
// discovery.
//
// It exposes multi and TV search with an optional year filter, external id
// lookup (the TMDB to IMDb bridge), TV detail retrieval for episode counts,
// and find-by-IMDb for series display titles. Requests go through a
// fetch.Getter so they share the process-wide response cache and outbound
// queue; tests can substitute any Getter.
package tmdb
