package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skyline/internal/api"
	"skyline/internal/config"
	"skyline/internal/database"
	"skyline/internal/domain"
	"skyline/internal/events"
	"skyline/internal/gemini"
	"skyline/internal/google"
	"skyline/internal/logging"
	"skyline/internal/metrics"
	"skyline/internal/models"
	"skyline/internal/repository"
	"skyline/internal/service"
	"skyline/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	chatCleanupInterval = 5 * time.Minute
	telegramTimeout     = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	catalogue, err := loadServices(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	initTelegram(ctx, cfg, eventBus, &logger)

	var syncWorker domain.SyncWorker
	if sheetsService := initGoogleSheets(ctx, cfg, db, &logger); sheetsService != nil {
		w := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.Options{
			Retry: worker.RetryPolicy{
				MaxRetries:   cfg.Sync.MaxRetries,
				InitialDelay: cfg.Sync.BaseDelay,
				MaxDelay:     cfg.Sync.MaxDelay,
			},
			RatePerSecond: cfg.Sync.RatePerSecond,
			Burst:         cfg.Sync.Burst,
			PollInterval:  cfg.Sync.PollInterval,
			BatchSize:     cfg.Sync.BatchSize,
		}, &logger)
		go w.Start(ctx)
		syncWorker = w
	}

	bookingService := service.NewBookingService(db, eventBus, syncWorker, cfg.Bookings.Enforce(), &logger)
	chatService := service.NewChatService(initChatModel(ctx, cfg, &logger), initChatStore(ctx, cfg, redisClient, &logger), service.ChatOptions{
		SystemInstruction: cfg.Chat.SystemPrompt,
		Timeout:           cfg.Chat.CallTimeout(),
		MaxMessages:       cfg.Chat.MaxMessages,
		Catalogue:         catalogue,
	}, &logger)

	backupService := database.NewBackupService(db, cfg.Backup, &logger)
	go backupService.Start(ctx)

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.HTTP, bookingService, chatService, catalogue, db, &logger)

	var grpcServer *api.GRPCServer
	if cfg.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.GRPC, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go grpcServer.WatchStore(ctx, db, 10*time.Second)
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadServices(cfg *config.Config, logger *zerolog.Logger) (models.Catalogue, error) {
	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = cfg.ServicesPath
	}

	catalogue, err := config.LoadServices(servicesPath)
	if err != nil {
		logger.Error().Err(err).Str("services_path", servicesPath).Msg("load services")
		return nil, err
	}
	return catalogue, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initChatStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.ChatStore {
	memory := repository.NewMemoryChatStore(cfg.Chat.SessionTTL)
	go memory.StartCleanup(ctx, chatCleanupInterval)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverChatStore(repository.NewRedisChatStore(redisClient, cfg.Chat.SessionTTL), memory, logger)
}

func initChatModel(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.ChatModel {
	client, err := gemini.NewClient(ctx, cfg.Chat.APIKey, cfg.Chat.Model, logger)
	if err != nil {
		if errors.Is(err, gemini.ErrNoAPIKey) {
			logger.Warn().Msg("chat api key not set, chat relay answers with fallback only")
		} else {
			logger.Error().Err(err).Msg("chat client init failed, chat relay answers with fallback only")
		}
		return nil
	}

	logger.Info().Str("model", cfg.Chat.Model).Msg("chat relay ready")
	return client
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) *google.SheetsService {
	if !cfg.Google.Enabled() {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		ctx,
		cfg.Google.CredentialsFile,
		cfg.Google.BookingsSpreadsheetID,
		cfg.Google.BookingsSheet,
		logger,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, sync tasks will retry")
	}

	if cfg.Google.ResyncOnStart {
		bookings, err := db.ListBookings(ctx)
		if err == nil {
			err = sheetsService.ReplaceBookingsSheet(ctx, bookings)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("google sheets resync failed")
		}
	}
	go sheetsService.RefreshCache(ctx, models.SheetsCacheTTL)

	if email, err := google.GetServiceAccountEmail(cfg.Google.CredentialsFile); err == nil {
		logger.Info().Str("service_account", email).Msg("google sheets connected")
	}
	return sheetsService
}

func initTelegram(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.ManagerIDs) == 0 {
		return
	}

	httpClient := &http.Client{Timeout: telegramTimeout}
	botAPI, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	botAPI.Debug = cfg.Telegram.Debug

	notifier := service.NewTelegramNotifier(botAPI, cfg.Telegram.ManagerIDs, logger)
	notifier.Subscribe(bus)
	go notifier.Start(ctx)
	logger.Info().Str("bot", botAPI.Self.UserName).Int("managers", len(cfg.Telegram.ManagerIDs)).Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
