package condition

import "errors"

// ErrInvalidCondition indicates a condition factory was given an
// out-of-range or missing argument.
var ErrInvalidCondition = errors.New("invalid termination condition")
