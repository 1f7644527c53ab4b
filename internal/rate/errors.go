package rate

import "errors"

// ErrRateLimited is returned when an identifier has exhausted its budget.
var ErrRateLimited = errors.New("rate limited")
