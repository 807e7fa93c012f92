package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/api"
	"github.com/rehab-triage-engine/internal/caching"
	"github.com/rehab-triage-engine/internal/config"
	"github.com/rehab-triage-engine/internal/database"
	"github.com/rehab-triage-engine/internal/domain"
	"github.com/rehab-triage-engine/internal/outcomes"
	"github.com/rehab-triage-engine/internal/repository"
	"github.com/rehab-triage-engine/internal/service"
	"github.com/rehab-triage-engine/internal/vocabulary"
	"github.com/rehab-triage-engine/pkg/advisory"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(&cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the catalog database and apply migrations
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to catalog database")
	}
	defer db.Close()

	if cfg.Database.MigrationsPath != "" {
		runner, err := database.NewMigrationRunner(&cfg.Database, cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run catalog migrations")
		}
		runner.Close()
	}

	// Catalog and questionnaire readers, optionally cached
	var catalog domain.CatalogReader = repository.NewCatalogRepository(db.Pool, logger)
	var questionnaires domain.QuestionnaireReader = repository.NewQuestionnaireRepository(db.Pool, logger)

	if cfg.Cache.Enabled {
		var redisClient *redisv8.Client
		if cfg.Cache.RedisURL != "" {
			opts, err := redisv8.ParseURL(cfg.Cache.RedisURL)
			if err != nil {
				logger.WithError(err).Fatal("Invalid cache redis URL")
			}
			redisClient = redisv8.NewClient(opts)
			defer redisClient.Close()
		}

		catalog, err = caching.NewCatalogCache(catalog, caching.CatalogCacheConfig{
			RedisClient: redisClient,
			MemoryTTL:   cfg.Cache.MemoryTTL,
			RedisTTL:    cfg.Cache.RedisTTL,
			MaxEntries:  cfg.Cache.MaxEntries,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create catalog cache")
		}
		questionnaires = caching.NewQuestionnaireCache(questionnaires, cfg.Cache.MemoryTTL, logger)
	}

	// Outcome assessment store
	store, err := newOutcomeStore(&cfg.Outcomes, configManager.GetDatabaseConnectionString())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open outcome store")
	}
	defer store.Close()

	// Optional advisory phrasing client
	var phraser domain.AdvisoryPhraser
	if cfg.Advisory.Enabled {
		client, err := advisory.NewClient(advisory.Config{
			BaseURL:   cfg.Advisory.BaseURL,
			APIKey:    cfg.Advisory.APIKey,
			Model:     cfg.Advisory.Model,
			Timeout:   cfg.Advisory.Timeout,
			RateLimit: cfg.Advisory.RateLimit,
			RedisURL:  cfg.Advisory.RedisURL,
			CacheTTL:  cfg.Advisory.CacheTTL,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create advisory client")
		}
		defer client.Close()
		phraser = client
	}

	// Assemble the engine
	vocab := vocabulary.New()
	builder := service.NewRecommendationBuilder(
		logger,
		catalog,
		service.NewRiskClassifier(logger),
		service.NewRoutineMatcher(logger, vocab),
		service.NewExerciseScorer(logger, vocab),
		service.NewProtocolPhaseResolver(logger),
		phraser,
		repository.NewRecommendationRepository(db.Pool, logger),
	)

	server := api.NewServer(
		configManager,
		logger,
		builder,
		questionnaires,
		store,
		service.NewOutcomeSummaryCalculator(logger),
	)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting triage engine")

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newOutcomeStore opens the configured outcome-assessment backend.
func newOutcomeStore(cfg *domain.OutcomesConfig, connString string) (outcomes.Store, error) {
	if cfg.Backend == "sqlite" {
		return outcomes.NewSQLiteStore(cfg.SQLitePath)
	}
	return outcomes.NewPostgresStore(connString)
}

// newLogger builds the process logger from logging configuration.
func newLogger(cfg *domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}

	return logger
}
