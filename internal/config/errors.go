package config

import "errors"

var (
	// ErrInvalidConfig wraps the first setting that Validate rejects, such as
	// a non-positive review timeout or an empty upstream URL.
	ErrInvalidConfig = errors.New("armpredict config: invalid setting")
	// ErrLoadConfig wraps failures reading the YAML file, the .env file or
	// the ARMPREDICT_ environment.
	ErrLoadConfig = errors.New("armpredict config: cannot load")
)
