package executor

import "errors"

// ErrTileFailed wraps the first error returned by a tile.
var ErrTileFailed = errors.New("tile failed")
