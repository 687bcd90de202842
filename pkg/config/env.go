package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
)

// APIKeyEnv is the environment variable that overrides portainer_api_key.
const APIKeyEnv = "PORTAINER_API_KEY"

// Environment holds the process environment inputs of the resolver. It is
// read once per invocation and passed to ResolveWith explicitly.
type Environment struct {
	APIKey   string `env:"PORTAINER_API_KEY"`
	LogLevel string `env:"STACK_SYNC_LOG_LEVEL" envDefault:"info"`
}

// LoadEnvironment reads Environment from the process environment.
func LoadEnvironment() (Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return Environment{}, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}
