package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"wfh/attendance/internal/api"
	"wfh/attendance/internal/cli"
	"wfh/attendance/internal/config"
	"wfh/attendance/internal/jobs"
	"wfh/attendance/internal/session"
	"wfh/attendance/internal/storage"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("wfhctl: ")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persist, watcher, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("session storage failed: %v", err)
	}
	defer closeStorage()

	client := api.New(cfg.APIBaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLocation(cfg.Location()),
	)
	store := session.New(client, persist)
	client.SetTokenSource(store)
	jobs.StartSessionCheckJob(ctx, cfg, store)

	app := &cli.App{Store: store, Client: client, Watcher: watcher, Out: os.Stdout}
	if err := app.Execute(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			app.PrintUsage(os.Stderr)
			closeStorage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		closeStorage()
		os.Exit(1)
	}
}

// openStorage picks the session backend. Only the file backend can be
// watched for changes made by other processes.
func openStorage(ctx context.Context, cfg config.Config) (session.Persister, cli.Watcher, func(), error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, nil, errors.New("REDIS_ADDR is required for the redis backend")
		}
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		closeFn := func() {
			if err := redisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
				log.Printf("redis close error: %v", err)
			}
		}
		return storage.NewRedisStore(redisClient, cfg.RedisPrefix), nil, closeFn, nil
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil, func() {}, nil
	case config.BackendFile, "":
		fs := storage.NewFileStore(cfg.SessionFile)
		return fs, fs, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
