package errors

import "errors"

// Startup errors.
var (
	ErrConfigMissing = errors.New("required configuration missing")
)

// Client errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrFlowNotFound   = errors.New("authorization flow not found")
	ErrTokenDecode    = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrAccessDenied   = errors.New("authorization denied")
)

// Server/transport errors.
var (
	ErrProviderRequest = errors.New("provider request failed")
)
