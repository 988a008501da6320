package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"ingester/internal/config"
	"ingester/internal/core/crawl"
	"ingester/internal/core/fetch"
	"ingester/internal/core/job"
	"ingester/internal/core/process"
	"ingester/internal/core/store"
	"ingester/internal/logger"
	rds "ingester/internal/platform/redis"
	tasks "ingester/internal/platform/tasks"
	"ingester/internal/server"
	"ingester/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[ingester] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	defer taskClient.Close()
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: cfg.FetchConcurrency,
		Queues:      map[string]int{"default": 1},
	})

	// Core services
	registry := job.NewRegistry()
	repo := store.NewRedisStore(redisSvc)
	fetchSvc := fetch.NewService(cfg, fetch.NewHeuristicDetector())
	processSvc := process.NewService(repo, cfg)
	crawlSvc := crawl.NewCrawlService(registry, taskClient, redisSvc, repo, fetchSvc, processSvc, processSvc, cfg)

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeCrawl, crawlSvc.HandleCrawlTask)

	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Ingester",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	deps := server.Dependencies{
		Crawl:    crawlSvc,
		Registry: registry,
		Redis:    redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
