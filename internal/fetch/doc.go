// Package fetch performs outbound GET requests for the search capabilities.
//
// Responses are cached in memory keyed by request URL (minus credentials) and
// optionally mirrored to a persistent cache. Network calls pass through a
// single FIFO queue that runs a fixed number of requests per batch and paces
// batches with a rate limiter, so burst load on third-party APIs stays capped
// no matter how many resolutions run concurrently. Failed responses are never
// cached.
package fetch
