package tarantool

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/tarantool/go-tarantool/v2"
	_ "github.com/tarantool/go-tarantool/v2/datetime"
	_ "github.com/tarantool/go-tarantool/v2/uuid"
)

const (
	ttReconnectSeconds = 3
	ttMaxReconnects    = 5
)

var (
	ErrUserNotSet     = errors.New("tarantool user is not set")
	ErrPasswordNotSet = errors.New("tarantool password is not set")
)

type Config struct {
	Address  string
	User     string
	Password string
}

// LoadConfig reads TT_ADDRESS, TT_USER and TT_PASSWORD. An empty address leaves tarantool disabled.
func LoadConfig() (Config, error) {
	var cfg Config

	cfg.Address = os.Getenv("TT_ADDRESS")
	if cfg.Address == "" {
		return cfg, nil
	}
	cfg.User = os.Getenv("TT_USER")
	if cfg.User == "" {
		return cfg, ErrUserNotSet
	}
	cfg.Password = os.Getenv("TT_PASSWORD")
	if cfg.Password == "" {
		return cfg, ErrPasswordNotSet
	}

	return cfg, nil
}

func (c Config) Enabled() bool {
	return c.Address != ""
}

func Connect(ctx context.Context, cfg Config) (*tarantool.Connection, error) {
	dialer := tarantool.NetDialer{
		Address:  cfg.Address,
		User:     cfg.User,
		Password: cfg.Password,
	}
	opts := tarantool.Opts{
		Timeout:       time.Second,
		Reconnect:     ttReconnectSeconds * time.Second,
		MaxReconnects: ttMaxReconnects,
	}

	return tarantool.Connect(ctx, dialer, opts)
}
