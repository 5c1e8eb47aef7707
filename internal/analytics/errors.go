package analytics

import "errors"

// ErrInvalidInput is returned for input the engine cannot derive a result from.
// Missing data is never an error; it yields empty or zero results.
var ErrInvalidInput = errors.New("invalid input")
