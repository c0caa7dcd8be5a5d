package config

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingValue  = errors.New("required configuration value missing")
)
