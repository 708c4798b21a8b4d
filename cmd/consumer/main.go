package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/agent"
	"github.com/Benaah/amaniquery-sub002/internal/api"
	"github.com/Benaah/amaniquery-sub002/internal/config"
	"github.com/Benaah/amaniquery-sub002/internal/logger"
	"github.com/Benaah/amaniquery-sub002/internal/metrics"
	"github.com/Benaah/amaniquery-sub002/internal/repository"
	"github.com/Benaah/amaniquery-sub002/internal/service"
	"github.com/Benaah/amaniquery-sub002/internal/storage"
	"github.com/Benaah/amaniquery-sub002/internal/stream"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Relational store
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	docRepo := repository.NewDocumentRepository(db)

	// Vector store
	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Qdrant.Dimension,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	defer qdrantRepo.Close()

	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}

	// Object store (bronze payloads, read-only)
	objectStorage, err := storage.NewS3Storage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize object storage")
	}

	// Durable log
	redisClient, err := stream.NewRedisClient(ctx, cfg.Stream.Addr, cfg.Stream.Password, cfg.Stream.DB)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	redisLog := stream.NewRedisLog(redisClient, cfg.Stream.Stream, cfg.Stream.Group)

	// Agents and pipeline
	inferenceClient := agent.NewInferenceClient(&agent.InferenceConfig{
		BaseURL: cfg.Inference.BaseURL,
		APIKey:  cfg.Inference.APIKey,
		Model:   cfg.Inference.Model,
		Timeout: cfg.Inference.Timeout,
	})
	agents := agent.NewSuite(inferenceClient)
	executor := agent.NewExecutor(cfg.Pipeline.RetryCount, cfg.Pipeline.RetryBackoff)

	embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})

	pipeline := service.NewPipeline(
		docRepo,
		qdrantRepo,
		objectStorage,
		agents,
		executor,
		embeddingService,
		appLogger,
		&service.PipelineConfig{MinTextLength: cfg.Pipeline.MinTextLength},
	)

	reporter := metrics.NewReporter(executor)
	reporter.Register("database", docRepo)
	reporter.Register("qdrant", qdrantRepo)
	reporter.Register("object_storage", objectStorage)
	reporter.Register("redis", redisLog)

	consumer := stream.NewConsumer(redisLog, pipeline, reporter, appLogger, &stream.ConsumerConfig{
		Name:      cfg.Stream.Consumer,
		BatchSize: cfg.Stream.BatchSize,
		BlockWait: cfg.Stream.BlockWait,
	})

	if err := consumer.Bootstrap(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to create consumer group")
	}

	recovery := stream.NewRecovery(redisLog, consumer, reporter, appLogger, &stream.RecoveryConfig{
		MinIdle:  cfg.Stream.MinIdle,
		Interval: cfg.Stream.RecoveryInterval,
		Batch:    cfg.Stream.BatchSize,
	})

	// Ops HTTP surface
	router := api.NewRouter(reporter, redisLog, appLogger, cfg.Server.Mode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Error("Ops server failed")
		}
	}()

	// Graceful shutdown: cancel the loops, let in-flight work finish, then
	// close store connections
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		recovery.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		consumer.Run(ctx)
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Ops server shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	summary := reporter.Snapshot()
	appLogger.WithFields(logger.Fields{
		"processed": summary.EntriesProcessed,
		"rejected":  summary.EntriesRejected,
		"failed":    summary.EntriesFailed,
		"reclaimed": summary.EntriesReclaimed,
	}).Info("Consumer shut down")
}
