package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"groupboard/internal/auth"
	"groupboard/internal/config"
	"groupboard/internal/events"
	"groupboard/internal/handlers/apiserver"
	appKafka "groupboard/internal/kafka"
	"groupboard/internal/logging"
	"groupboard/internal/provisioning"
	appRedis "groupboard/internal/redis"
	"groupboard/internal/services"
	"groupboard/internal/storage"
	"groupboard/internal/telemetry"
)

const serviceName = "groupboard-api"

func main() {
	// 1. Config
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}
	cfg, err := config.LoadConfig(os.Getenv("GROUPBOARD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, serviceName)
	log.Info().Str("version", cfg.AppVersion).Msg("api server config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	// 2. Database
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer storage.Close(db)
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	store := storage.NewStore(db)

	// 3. Token revocation (redis, optional)
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := appRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		blacklist = appRedis.NewRedisTokenBlacklist(redisClient)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token revocation enabled")
	}

	// 4. Domain events (kafka, optional)
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka producer")
		}
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer, cfg.Kafka.EventsTopic)
	}

	provisioner, err := provisioning.New(ctx, cfg.Provisioner)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize user provisioning")
	}

	// 5. Services
	timeout := cfg.Database.QueryTimeout
	authority := services.NewMembershipAuthority(store.Users, store.Groups, store.Invitations)
	svc := apiserver.Services{
		Auth:            services.NewAuthService(blacklist, timeout),
		Users:           services.NewUserService(store, authority, provisioner, timeout),
		Groups:          services.NewGroupService(store, authority, publisher, timeout),
		Invitations:     services.NewInvitationService(store, authority, publisher, timeout),
		Posts:           services.NewPostService(store, authority, publisher, timeout),
		Acknowledgement: services.NewAcknowledgementService(store, authority, publisher, timeout),
		Shortcuts:       services.NewShortcutService(store, authority, timeout),
	}

	// 6. Router and middleware
	var handler http.Handler = apiserver.NewRouter(svc, cfg.Auth, blacklist, store)
	if rl := cfg.APIServer.RateLimit; rl.Requests > 0 {
		handler = httprate.LimitByIP(rl.Requests, rl.Window)(handler)
	}
	cors := cfg.APIServer.CORS
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cors.AllowedOrigins),
		handlers.AllowedMethods(cors.AllowedMethods),
		handlers.AllowedHeaders(cors.AllowedHeaders),
		handlers.ExposedHeaders(cors.ExposedHeaders),
		handlers.MaxAge(cors.MaxAge),
	}
	if cors.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	handler = handlers.CORS(corsOptions...)(handler)
	handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(handler)
	handler = telemetry.Middleware(serviceName)(handler)

	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.APIServer.ReadTimeout,
		WriteTimeout: cfg.APIServer.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("api server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping api server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("api server forced to shut down")
	}
	if err := shutdownTracing(ctxShutdown); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	log.Info().Msg("api server stopped")
}
