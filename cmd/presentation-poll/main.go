package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Xausdorf/presentation-poll/internal/gateway/bot"
	"github.com/Xausdorf/presentation-poll/internal/gateway/clock"
	"github.com/Xausdorf/presentation-poll/internal/gateway/httpapi"
	"github.com/Xausdorf/presentation-poll/internal/replication"
	"github.com/Xausdorf/presentation-poll/internal/repository/amqppub"
	"github.com/Xausdorf/presentation-poll/internal/repository/redispub"
	"github.com/Xausdorf/presentation-poll/internal/repository/tarantool"
	"github.com/Xausdorf/presentation-poll/internal/repository/ttadapter"
	"github.com/Xausdorf/presentation-poll/internal/store"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("presentation poll stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := store.New()
	session := usecase.NewSession(st)

	sinks, closeSinks, err := setupReplication(ctx, logger, st)
	defer closeSinks()
	if err != nil {
		return err
	}

	dispatcher := replication.NewDispatcher(logger, sinks...)
	st.OnCommit(dispatcher.Enqueue)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	defer stopDispatcher(cancel, &wg, dispatcher, logger)

	// a restored session already has its presentation state
	if err = session.Init(ctx); err != nil && !errors.Is(err, usecase.ErrAlreadyInitialized) {
		return err
	}

	clk := clock.New()
	hosts := 0
	errs := make(chan error, 2)

	httpCfg, err := httpapi.LoadConfig()
	if err != nil {
		return err
	}
	if httpCfg.Enabled() {
		hosts++
		srv := httpapi.NewServer(httpCfg, session, clk, logger)
		go func() { errs <- srv.Start() }()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("could not shut down http server", "error", err)
			}
		}()
	}

	botCfg := bot.LoadConfig()
	if botCfg.Enabled() {
		b, err := bot.NewPresentationBot(botCfg, session, clk, logger)
		if err != nil {
			return err
		}
		hosts++
		go func() { errs <- b.Listen(ctx) }()
		defer b.Close()
	}

	if hosts == 0 {
		return errors.New("neither HTTP_ADDR nor MM_TOKEN and MM_SERVER are set, nothing to serve")
	}

	select {
	case <-ctx.Done():
		return nil
	case err = <-errs:
		return err
	}
}

// setupReplication restores the store from tarantool when it is configured and
// returns every enabled sink.
func setupReplication(ctx context.Context, logger *slog.Logger, st *store.Store) ([]replication.Sink, func(), error) {
	var (
		sinks   []replication.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	ttCfg, err := tarantool.LoadConfig()
	if err != nil {
		return nil, closeAll, err
	}
	if ttCfg.Enabled() {
		conn, err := tarantool.Connect(ctx, ttCfg)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = conn.Close() })
		logger.Info("connected to tarantool", "addr", ttCfg.Address)

		tables, err := ttadapter.NewLoader(conn).Load(ctx)
		if err != nil {
			return nil, closeAll, err
		}
		if err = st.Restore(tables); err != nil {
			return nil, closeAll, err
		}
		logger.Info("session restored from tarantool", "rows", tables.Len())
		sinks = append(sinks, ttadapter.NewReplicator(conn))
	}

	redisCfg, err := redispub.LoadConfig()
	if err != nil {
		return nil, closeAll, err
	}
	if redisCfg.Enabled() {
		client, err := redispub.Connect(ctx, redisCfg)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = client.Close() })
		sinks = append(sinks, redispub.NewPublisher(client, redisCfg.Channel))
		logger.Info("publishing changes to redis", "channel", redisCfg.Channel)
	}

	amqpCfg := amqppub.LoadConfig()
	if amqpCfg.Enabled() {
		pub, err := amqppub.Dial(amqpCfg)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = pub.Close() })
		sinks = append(sinks, pub)
		logger.Info("publishing changes to rabbitmq", "queue", amqpCfg.Queue)
	}

	return sinks, closeAll, nil
}

// stopDispatcher stops the dispatcher goroutine, then gives the sinks a last chance
// to receive what is still queued.
func stopDispatcher(cancel context.CancelFunc, wg *sync.WaitGroup, d *replication.Dispatcher, logger *slog.Logger) {
	cancel()
	wg.Wait()

	ctx, cancelFlush := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelFlush()
	d.Flush(ctx)
	if n := d.Pending(); n > 0 {
		logger.Warn("changesets not replicated before shutdown", "count", n)
	}
}
