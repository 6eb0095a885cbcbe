package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Queue and ordering errors
	ErrInvalidIndex      = fmt.Errorf("invalid index")
	ErrOutOfRange        = fmt.Errorf("track index out of range")
	ErrNothingToPlay     = fmt.Errorf("nothing to play")
	ErrPlaylistNotLoaded = fmt.Errorf("playlist not loaded")

	// Persistence errors
	ErrPersistenceConflict = fmt.Errorf("playlist updated by another collaborator")
	ErrPersistenceFailure  = fmt.Errorf("persistence request failed")
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")
	ErrMediaItemNotFound   = fmt.Errorf("media item not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
