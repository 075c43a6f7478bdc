package operation

import "errors"

// ErrNotInitialized is returned when a region is executed before
// InitExecution allocated the target buffer.
var ErrNotInitialized = errors.New("operation not initialized")
