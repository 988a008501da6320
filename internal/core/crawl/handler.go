package crawl

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	crawl *CrawlService
}

func NewCrawlHandler(crawl *CrawlService) *Handler {
	return &Handler{crawl: crawl}
}

func (h *Handler) HandleCreateCrawl(c *fiber.Ctx) error {
	var req StartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(apiError{Error: "invalid body"})
	}
	jobID, alreadyRunning, err := h.crawl.Start(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(apiError{Error: err.Error()})
	}
	return c.JSON(StartResponse{Success: true, JobID: jobID, AlreadyRunning: alreadyRunning})
}

func (h *Handler) HandleGetJob(c *fiber.Ctx) error {
	id := c.Params("jobId")
	st, err := h.crawl.JobStatus(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(apiError{Error: "not_found"})
	}
	return c.JSON(st)
}

func (h *Handler) HandleCancelJob(c *fiber.Ctx) error {
	id := c.Params("jobId")
	if !h.crawl.Cancel(id) {
		return c.Status(fiber.StatusNotFound).JSON(apiError{Error: "not_found"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"job_id":  id,
		"status":  "cancelling",
	})
}

func (h *Handler) HandleGetSource(c *fiber.Ctx) error {
	id := c.Params("sourceId")
	src, err := h.crawl.SourceStatus(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(apiError{Error: "not_found"})
	}
	return c.JSON(fiber.Map{"success": true, "source": src})
}

func (h *Handler) HandleScrape(c *fiber.Ctx) error {
	target := c.Query("url")
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(apiError{Error: "url is required"})
	}
	res, err := h.crawl.FetchSingle(c.Context(), target)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(apiError{Error: err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "data": res})
}

func (h *Handler) HandleSitemap(c *fiber.Ctx) error {
	target := c.Query("url")
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(apiError{Error: "url is required"})
	}
	urls, err := h.crawl.ParseSitemap(c.Context(), target)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(apiError{Error: err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "urls": urls, "count": len(urls)})
}
