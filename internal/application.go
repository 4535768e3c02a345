package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/tictactwo/tictactwo-backend/internal/broker"
	"github.com/tictactwo/tictactwo-backend/internal/broker/redispub"
	"github.com/tictactwo/tictactwo-backend/internal/config"
	"github.com/tictactwo/tictactwo-backend/internal/metrics"
	"github.com/tictactwo/tictactwo-backend/internal/registry"
	"github.com/tictactwo/tictactwo-backend/internal/usecase"
	"github.com/tictactwo/tictactwo-backend/transport/rest"
	"github.com/tictactwo/tictactwo-backend/transport/websocket"
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

	m := metrics.New("tictactwo", prometheus.DefaultRegisterer)

	var relay broker.Broker = broker.NewHub(logger)
	if conf.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr: conf.Redis.GetRedisAddr(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("could not connect to redis: %w", err)
		}

		defer func() {
			if err := client.Close(); err != nil {
				log.Error("could not close redis client", "error", err)
			}
		}()

		redisRelay := redispub.New(logger, client)
		go func() {
			if err := redisRelay.Run(ctx); err != nil {
				log.Error("redis relay stopped", "error", err)
				cancel()
			}
		}()

		relay = redisRelay
	}

	roomRegistry := registry.New(logger, m)
	gameUseCase := usecase.NewGameUseCase(logger, roomRegistry)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameUseCase, relay, m)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
