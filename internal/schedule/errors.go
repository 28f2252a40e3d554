package schedule

import "errors"

var (
	// ErrMalformedTime is returned when a clock string is not a valid "HH:MM" value.
	ErrMalformedTime = errors.New("malformed clock time")

	// ErrInvalidWindow is returned when a working window fails its ordering invariants.
	ErrInvalidWindow = errors.New("invalid working window")
)
