// Package mapping resolves foreign catalog ids (Kitsu, TMDB) to IMDb title
// ids. Resolution walks an ordered chain: the manual override table, the
// persistent mapping store, metadata-driven search with candidate scoring,
// and finally the legacy suggestion search. Discovered mappings are written
// back to the store on a best-effort basis.
package mapping
