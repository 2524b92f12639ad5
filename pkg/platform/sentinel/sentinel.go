// Package sentinel holds store-level facts that services translate into
// domain errors.
package sentinel

import "errors"

// ErrNotFound is returned, possibly wrapped, when a lead or admin session
// does not exist.
var ErrNotFound = errors.New("not found")
