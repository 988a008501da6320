package server

import (
	"ingester/internal/core/crawl"
	"ingester/internal/core/job"
	"ingester/internal/health"
	"ingester/internal/platform/redis"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Crawl    *crawl.CrawlService
	Registry *job.Registry
	Redis    *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Redis, d.Registry)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	crawlHandler := crawl.NewCrawlHandler(d.Crawl)
	api.Post("/crawl", crawlHandler.HandleCreateCrawl)
	api.Get("/jobs/:jobId", crawlHandler.HandleGetJob)
	api.Delete("/jobs/:jobId", crawlHandler.HandleCancelJob)

	api.Get("/sources/:sourceId", crawlHandler.HandleGetSource)
	api.Get("/scrape", crawlHandler.HandleScrape)
	api.Get("/sitemap", crawlHandler.HandleSitemap)

	return healthHandler
}
