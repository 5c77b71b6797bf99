package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"kitabuddy/internal/catalog"
	"kitabuddy/internal/companion"
	"kitabuddy/internal/config"
	"kitabuddy/internal/connectivity"
	"kitabuddy/internal/gate"
	kitabuddygrpc "kitabuddy/internal/grpc"
	internalhttp "kitabuddy/internal/http"
	"kitabuddy/internal/jobs"
	"kitabuddy/internal/model"
	"kitabuddy/internal/session"
	"kitabuddy/internal/settings"
	"kitabuddy/internal/store"
	"kitabuddy/internal/store/driver"
	"kitabuddy/internal/store/memory"
	"kitabuddy/internal/store/redisstore"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.LoadEnvFile(*envFile); err != nil {
		fatal(logger, "env file load failed", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := driver.Open(ctx, cfg)
	if err != nil {
		fatal(logger, "store init failed", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("store close error", "err", err)
		}
	}()
	if cfg.BootstrapAdminID != "" {
		created, err := driver.EnsureUser(ctx, backend, cfg.BootstrapAdminID, "", string(model.RoleSuperAdmin), cfg.BootstrapAdminPassword)
		if err != nil {
			fatal(logger, "bootstrap admin failed", err)
		}
		if created {
			logger.Info("bootstrap admin created", "student_id", cfg.BootstrapAdminID)
		}
	}

	var counters store.Counters = backend
	var chat store.ChatStream = memory.New()
	probeTargets := []connectivity.Pinger{backend}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			fatal(logger, "redis ping failed", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", "err", err)
			}
		}()
		streams := redisstore.New(redisClient)
		counters = streams
		chat = streams
		probeTargets = append(probeTargets, streams)
	} else {
		logger.Info("redis not configured, chat history kept in process memory")
	}

	features, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		fatal(logger, "catalog load failed", err)
	}

	var inner companion.Companion
	if cfg.GeminiAPIKey != "" {
		g, err := companion.NewGemini(ctx, companion.Options{
			APIKey:      cfg.GeminiAPIKey,
			ChatModel:   cfg.GeminiChatModel,
			ImageModel:  cfg.GeminiImageModel,
			SpeechModel: cfg.GeminiSpeechModel,
			Voice:       cfg.GeminiVoice,
		})
		if err != nil {
			fatal(logger, "companion init failed", err)
		}
		defer g.Close()
		inner = g
	} else {
		logger.Warn("GEMINI_API_KEY not set, companion replies with fallbacks only")
	}

	svc := settings.New(backend, logger)
	online := connectivity.NewMonitor(true, logger)
	if err := svc.Refresh(ctx); err != nil {
		logger.Warn("initial settings refresh failed", "err", err)
	}
	usage := gate.NewUsageTracker(counters, cfg.AnalyticsEnabled, logger)

	sessions, err := session.NewManager(session.Deps{
		Settings:     svc,
		Users:        backend,
		Reports:      backend,
		Counters:     counters,
		Chat:         chat,
		Companion:    companion.NewGuarded(inner, logger),
		Catalog:      features,
		Connectivity: online,
		Codes:        cfg.Codes,
		Usage:        usage,
		Logger:       logger,
		Options: session.Options{
			ConnectivityAware:   cfg.ConnectivityAware,
			ChatHistoryLimit:    cfg.ChatHistoryLimit,
			DefaultUserPassword: cfg.DefaultUserPassword,
		},
	}, cfg.SessionTTL)
	if err != nil {
		fatal(logger, "session manager init failed", err)
	}

	server := internalhttp.NewServer(cfg, sessions, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var grpcServer *grpc.Server
	if cfg.ServiceAuthToken != "" {
		unary, stream, err := kitabuddygrpc.NewServiceAuthInterceptors(cfg.ServiceAuthToken)
		if err != nil {
			fatal(logger, "grpc service auth init failed", err)
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(unary), grpc.StreamInterceptor(stream))
		healthpb.RegisterHealthServer(grpcServer, kitabuddygrpc.NewHealthServer(svc, logger))
	} else {
		logger.Info("SERVICE_AUTH_TOKEN not set, grpc health service disabled")
	}

	jobs.StartSettingsRefreshJob(ctx, cfg.SettingsRefreshInterval, cfg.ProbeTimeout*3, svc, online, logger)
	jobs.StartConnectivityProbeJob(ctx, cfg.ConnectivityProbeInterval, cfg.ProbeTimeout, online, svc, logger, probeTargets...)
	jobs.StartSessionSweepJob(ctx, time.Minute, sessions, logger)

	go func() {
		logger.Info("kitabuddy http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "http server error", err)
		}
	}()

	if grpcServer != nil {
		go func() {
			listener, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				fatal(logger, "grpc listen error", err)
			}
			logger.Info("kitabuddy grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(listener); err != nil {
				fatal(logger, "grpc server error", err)
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "err", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	usage.Wait()
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
