package analyze

import "errors"

// ErrInvalidConfig is returned by NewArbiter for unusable settings.
var ErrInvalidConfig = errors.New("invalid arbiter config")

// ErrOutcomeRange is returned for digits outside 0..9.
var ErrOutcomeRange = errors.New("outcome out of range")
