package cache

import "errors"

var (
	ErrConfigRequired = errors.New("cache: redis config is required")
	ErrURLRequired    = errors.New("cache: redis url is required")
)
