package review

import "errors"

// Sentinel kinds for workflow errors.
var (
	ErrInFlight = errors.New("review already in flight")
	ErrDispatch = errors.New("review dispatch refused")
)
