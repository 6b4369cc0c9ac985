package store

import (
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

// ErrNotFound is returned when no post matches a lookup.
var ErrNotFound = errors.NotFoundError("post not found in store").Build()
