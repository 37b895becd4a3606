package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrProviderUnavailable is returned when a valid provider has no configured backend
	ErrProviderUnavailable = goerr.New("provider is not available")

	// ErrNotFound is wrapped by every repository backend when an entity does not exist
	ErrNotFound = goerr.New("not found")
)
