package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"groupboard/internal/auth"
	"groupboard/internal/config"
	"groupboard/internal/handlers/notifyserver"
	appKafka "groupboard/internal/kafka"
	kafkahandlers "groupboard/internal/kafka/handlers"
	"groupboard/internal/logging"
	appRedis "groupboard/internal/redis"
	"groupboard/internal/storage"
	"groupboard/internal/websocket"
)

const serviceName = "groupboard-notify"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}
	cfg, err := config.LoadConfig(os.Getenv("GROUPBOARD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, serviceName)
	if !cfg.Kafka.Enabled {
		log.Fatal().Msg("notify server requires KAFKA.ENABLED")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Membership lookups only; the API server owns migrations.
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer storage.Close(db)
	groups := storage.NewGormGroupRepository(db)

	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := appRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		blacklist = appRedis.NewRedisTokenBlacklist(redisClient)
	}

	hub := websocket.NewHub()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	consumer := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	defer consumer.Close()
	eventHandler := kafkahandlers.NewEventHandler(hub, groups)
	go func() {
		defer wg.Done()
		err := consumer.Consume(ctx, []string{cfg.Kafka.EventsTopic}, cfg.Kafka.ConsumerGroup, eventHandler.HandleMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("kafka event consumer failed")
			stop()
		}
	}()

	wsHandler := notifyserver.NewWebSocketHandler(hub, cfg, blacklist)
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.NotifyServer.WebSocketPath, wsHandler.ServeWS)

	serverAddr := fmt.Sprintf("%s:%s", cfg.NotifyServer.Host, cfg.NotifyServer.Port)
	httpServer := &http.Server{Addr: serverAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", serverAddr).Str("path", cfg.NotifyServer.WebSocketPath).Msg("notify server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("notify server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("notify server shutting down")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("notify server shutdown failed")
	}
	wg.Wait()
	log.Info().Msg("notify server stopped")
}
