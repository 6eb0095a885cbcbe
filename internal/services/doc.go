// Package services implements [PlaylistAPI], the HTTP client for the Playlist Persistence API.
//
// # Endpoints
//
//   - GET /playlists/{id} : playlist with position-ascending media items
//   - PUT /playlists/{id}/reorder : full ordering in, authoritative ordering out
//   - POST /playlists/{id}/media : append an item, returns the updated playlist
//   - DELETE /playlists/{id}/media/{mediaItemId} : remove an item, returns the updated playlist
//
// The reference server adds GET /health, GET and POST /playlists, and a websocket change feed at
// GET /playlists/{id}/events consumed by [PlaylistAPI.Watch].
//
// [PlaylistAPI] satisfies the persistence contract the sync coordinator depends on.
//
// # Transport
//
// Requests pass through a [rate.Limiter] configured by api.rate_limit. When api.token is set the
// client is wrapped by [oauth2.NewClient] with a static token source so each request carries a
// bearer token; the websocket handshake sends the same header.
//
// # Error Handling
//
// Non-2xx responses map to sentinel errors from the shared package:
//   - 404 : [shared.ErrPlaylistNotFound] or [shared.ErrMediaItemNotFound]
//   - 409 : [shared.ErrPersistenceConflict]
//   - 400 : [shared.ErrInvalidInput]
//   - anything else, and transport failures : [shared.ErrAPIRequest]
package services
