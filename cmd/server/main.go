package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codemate/codemate/internal/api"
	"github.com/codemate/codemate/internal/app"
	"github.com/codemate/codemate/internal/app/maintenance"
	"github.com/codemate/codemate/internal/collab"
	"github.com/codemate/codemate/internal/runner"
	appErrors "github.com/codemate/codemate/pkg/errors"
	"github.com/codemate/codemate/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "additional directory searched for config.yaml")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "codemate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	var paths []string
	if configPath != "" {
		paths = append(paths, configPath)
	}

	cfg, err := app.LoadConfig(paths...)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.WithModule("server")

	registry := collab.NewRegistry()
	cache := collab.NewCache()
	service := collab.NewService(registry, cache, collab.Options{
		RoomScopedChat: cfg.Collab.Chat.RoomScoped,
	})
	hub := collab.NewHub(service)

	executor := runner.NewClient(runner.Config{
		BaseURL: cfg.Execution.BaseURL,
		Timeout: cfg.Execution.Timeout,
	})

	sweeper := maintenance.NewSweeper(registry, cache,
		maintenance.WithSchedule(cfg.Collab.Rooms.SweepSchedule),
		maintenance.WithExpireEmpty(cfg.Collab.Rooms.ExpireEmpty),
	)
	if err := sweeper.Start(); err != nil {
		return appErrors.Wrap(err, "start sweeper")
	}
	defer sweeper.Stop()

	router := api.NewRouter(cfg, hub, service, executor)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return appErrors.Wrap(err, "shutdown")
	}

	log.Info("stopped")
	return nil
}
