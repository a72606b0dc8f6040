package local

import (
	"fmt"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// ErrNotFound is returned when a file is missing from a collection. It
// matches domain.ErrNotFound.
var ErrNotFound = fmt.Errorf("local record %w", domain.ErrNotFound)
