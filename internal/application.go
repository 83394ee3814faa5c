package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/playlobby/tictactoe-server/internal/config"
	"github.com/playlobby/tictactoe-server/internal/repository"
	"github.com/playlobby/tictactoe-server/internal/server/tcp"
	"github.com/playlobby/tictactoe-server/internal/service"
	"github.com/playlobby/tictactoe-server/internal/storage"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	accounts := repository.NewAccountStore()
	rooms := repository.NewRoomRegistry()

	var auth *service.AuthService

	switch conf.UserDatabase.Backend {
	case "redis":
		redisStore, err := storage.NewRedisUserStore(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis user store: %w", err)
		}

		defer func() {
			if err = redisStore.Close(); err != nil {
				log.Error("could not close redis user store", "error", err)
			}
		}()

		auth = service.NewAuthService(logger, accounts, redisStore)
	case "file":
		auth = service.NewAuthService(logger, accounts, storage.NewFileUserStore(conf.UserDatabase.Path))
	default:
		return fmt.Errorf("unknown user database backend %q", conf.UserDatabase.Backend)
	}

	if err := auth.Seed(ctx); err != nil {
		return fmt.Errorf("could not seed accounts: %w", err)
	}

	server := tcp.New(logger, auth, rooms)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting TCP server", "port", conf.Port)
		if err := server.Start(ctx, conf.Port); err != nil {
			log.Error("TCP server error", "error", err)
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("TCP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
