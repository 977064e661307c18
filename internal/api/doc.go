// Package api serves imdbratings over HTTP. It translates rating store
// records and resolver results into transport-friendly payloads so addon
// clients and remote rating-store clients never see internal types.
//
// # Routes
//
// Rating store: /api/rating/{id}, /api/episode/{series}/{season}/{episode},
// /api/episode/id/{id}, /api/kitsu-mapping[/{id}], /api/stats and the
// /api/cache endpoints. Bodies use the ratingsapi wire types, so a
// ratingsapi.Client pointed at this server behaves like a local store.
//
// Addon: /manifest.json and /stream/{type}/{id}.json. Both also answer
// under an /api or /stremio prefix. Display options arrive as a JSON
// "config" query parameter merged over the configured defaults.
//
// # Design Notes
//
// Every response carries permissive CORS headers and an X-Request-ID.
// Errors are always JSON ({"error": "..."}), including unknown paths. The
// stream endpoint never fails because a title has no rating; it returns a
// "not available" stream instead.
package api
