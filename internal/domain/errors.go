package domain

import "errors"

var (
	ErrInvalidAuthMode    = errors.New("unsupported auth mode")
	ErrSessionModeChanged = errors.New("session snapshot belongs to a different auth mode")
	ErrNotAuthenticated   = errors.New("client is not authenticated")
	ErrCityNotFound       = errors.New("city not found")
	ErrLoginFailed        = errors.New("login failed")
	ErrVerificationNeeded = errors.New("login requires a verification code")
)
