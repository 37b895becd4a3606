package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrMissingRequired = goerr.New("required flag is missing")
)

// Context keys for error values
const (
	FlagKey    = "flag"
	BackendKey = "backend"
)
