package plugin

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid provider configuration")
	ErrMissingDependency = errors.New("provider dependency unavailable")
	ErrNotActivated      = errors.New("provider not activated")
	ErrNotRegistered     = errors.New("provider not registered")
	ErrAlreadyRegistered = errors.New("provider already registered")
	ErrIncompatibleCore  = errors.New("incompatible core version")
)
