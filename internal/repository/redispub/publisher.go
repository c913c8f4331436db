// Package redispub publishes committed changesets on a redis channel so that
// subscribers can follow the session live.
package redispub

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Xausdorf/presentation-poll/internal/replication"
	"github.com/Xausdorf/presentation-poll/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	defaultChannel = "presentation-poll"
	pingTimeout    = 2 * time.Second
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// LoadConfig reads REDIS_ADDR, REDIS_PASSWORD, REDIS_DB and REDIS_CHANNEL.
// An empty address leaves the publisher disabled.
func LoadConfig() (Config, error) {
	var cfg Config

	cfg.Addr = os.Getenv("REDIS_ADDR")
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		n, err := strconv.Atoi(dbStr)
		if err != nil {
			return cfg, fmt.Errorf("could not parse REDIS_DB: %w", err)
		}
		cfg.DB = n
	}
	cfg.Channel = os.Getenv("REDIS_CHANNEL")
	if cfg.Channel == "" {
		cfg.Channel = defaultChannel
	}

	return cfg, nil
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Publisher struct {
	client  publisher
	channel string
}

// Connect opens a client and checks the server with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
	}
}

func (p *Publisher) Name() string { return "redis" }

func (p *Publisher) Apply(ctx context.Context, cs store.Changeset) error {
	body, err := replication.MarshalEvent(cs)
	if err != nil {
		return err
	}
	if err = p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("could not publish to redis channel %s: %w", p.channel, err)
	}
	return nil
}
