package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/finlend/ledger-engine/internal/config"
	"github.com/finlend/ledger-engine/internal/handler"
	"github.com/finlend/ledger-engine/internal/notify"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/internal/service"
	"github.com/finlend/ledger-engine/internal/storage"
	"github.com/finlend/ledger-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repository.SetStorageTimeout(cfg.GetStorageTimeout())

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	dueRepo := repository.NewDueRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	assignRepo := repository.NewAssignmentRepository(db)

	// Initialize services
	sink := notify.NewLogSink(slog.Default())
	walletService := service.NewWalletService(ledgerRepo, redisClient)
	productService := service.NewProductService(productRepo, dueRepo, assignRepo, walletService, cfg)
	dueTracker := service.NewDueTrackerService(productRepo, dueRepo, assignRepo, sink)
	collectionService := service.NewCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, walletService, sink, cfg)
	settlementService := service.NewSettlementService(productRepo, ledgerRepo, walletService, sink, cfg)
	assignmentService := service.NewAssignmentService(productRepo, assignRepo)

	engineHandler := handler.NewEngineHandler(
		productService,
		dueTracker,
		collectionService,
		settlementService,
		assignmentService,
		walletService,
		storage.UnconfiguredStore{},
	)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(engineHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}

	var h slog.Handler
	if cfg.Logging.Format == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(h))
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(engineHandler *handler.EngineHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	engineHandler.RegisterRoutes(api)

	return router
}
