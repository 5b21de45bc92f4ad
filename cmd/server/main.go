package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"

	"github.com/Tyrowin/roomhub/internal/auth"
	"github.com/Tyrowin/roomhub/internal/chat"
	"github.com/Tyrowin/roomhub/internal/server"
)

func main() {
	envErr := godotenv.Load()

	config := server.NewConfigFromEnv()
	logger := server.NewLogger(config.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Warn("no .env file found, using environment variables")
	}

	if config.Auth.Secret == "" {
		logger.Error("AUTH_SECRET must be set")
		os.Exit(1)
	}

	registry, err := chat.NewRegistry(config.Rooms)
	if err != nil {
		logger.Error("building room registry", "error", err)
		os.Exit(1)
	}

	hub := server.NewHub(*config, registry, logger)
	server.StartHub(hub)

	authn := auth.NewTokenAuthenticator(auth.TokenConfig{
		SecretKey: config.Auth.Secret,
		Issuer:    config.Auth.Issuer,
	})
	mux := server.SetupRoutes(hub, authn)
	httpServer := server.CreateServer(config.Port, mux)

	go func() {
		if err := server.StartServer(httpServer, logger); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		config.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"roomhub": func(ctx context.Context) error {
				if err := server.ShutdownServer(ctx, httpServer, config.ShutdownTimeout, logger); err != nil {
					return err
				}
				return hub.Shutdown(config.ShutdownTimeout)
			},
		},
	)

	exitCode := <-wait
	logger.Info("server exited", "code", exitCode)
	os.Exit(exitCode)
}
