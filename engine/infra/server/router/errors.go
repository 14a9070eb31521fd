package router

import (
	"errors"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrBindError      = errors.New("server bind error")
)

// Error codes
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
)

// Error messages
const (
	ErrMsgAppStateNotInitialized = "application state not initialized"
	ErrMsgInternal               = "internal server error"
)
