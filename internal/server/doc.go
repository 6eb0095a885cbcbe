// Package server implements the reference Playlist Persistence API: HTTP routing, middleware, the
// playlist handlers, and the websocket change feed.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally, registering "METHOD /path" patterns so
// path wildcards and 405 responses come from the mux.
//
// # Endpoints
//
//	GET    /health
//	GET    /playlists                              (?owner=, ?group=)
//	POST   /playlists
//	GET    /playlists/{id}
//	DELETE /playlists/{id}                         (soft delete)
//	PUT    /playlists/{id}/reorder                 { mediaItems: [{id, position}] } -> { mediaItems }
//	POST   /playlists/{id}/media                   { mediaItem } -> Playlist (201)
//	DELETE /playlists/{id}/media/{mediaItemId}     -> Playlist
//	GET    /playlists/{id}/events                  websocket change feed
//
// A reorder request must name exactly the stored item set with positions 0..n-1. Unknown, missing or
// repeated ids are answered with 409 Conflict; malformed positions with 400. Errors are JSON bodies of
// the form {"error": "..."}.
//
// # Change Feed
//
// The [Hub] groups websocket subscribers by playlist. A subscriber first receives the playlist's
// current state, then one {"type":"playlist.updated","playlist":{...}} event after each write. Slow
// subscribers are disconnected instead of blocking the broadcast loop.
//
// # Authentication
//
// When a token is configured, [BearerAuth] requires "Authorization: Bearer <token>" on every request
// except /health. Websocket clients may pass it as the access_token query parameter instead.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
