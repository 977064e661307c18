// Package ratingsapi speaks the rating-store HTTP protocol: the wire types
// served by the api package and a client that implements the rating store
// contract against a remote server.
package ratingsapi
