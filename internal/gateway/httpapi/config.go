package httpapi

import (
	"errors"
	"os"
	"time"
)

const defaultTokenTTL = 12 * time.Hour

var ErrSecretNotSet = errors.New("jwt secret is not set")

type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
}

// LoadConfig reads HTTP_ADDR and JWT_SECRET. An empty address leaves the server disabled.
func LoadConfig() (Config, error) {
	var cfg Config

	cfg.Addr = os.Getenv("HTTP_ADDR")
	if cfg.Addr == "" {
		return cfg, nil
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return cfg, ErrSecretNotSet
	}
	cfg.TokenTTL = defaultTokenTTL

	return cfg, nil
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}
