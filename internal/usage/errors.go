package usage

import "errors"

// ErrLimitReached indicates the user has exhausted today's conversions.
var ErrLimitReached = errors.New("daily conversion limit reached")
