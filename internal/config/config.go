package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string

	TaskMaxRetries int

	// HeartbeatInterval is how long a job may go without a real progress
	// update before a liveness-only update is emitted for pollers.
	HeartbeatInterval time.Duration

	// Stage percentage bands for overall progress mapping. Ordering and
	// monotonicity are the contract; the exact boundaries are tunable.
	StageBounds map[string][2]float64

	CrawlMaxDepth    int
	CrawlMaxPages    int
	FetchConcurrency int

	MinCodeBlockLength int
	ChunkSize          int
}

// fileOverrides is the optional YAML overlay referenced by INGESTER_CONFIG.
type fileOverrides struct {
	HeartbeatIntervalSeconds int                   `yaml:"heartbeat_interval_seconds"`
	Stages                   map[string][2]float64 `yaml:"stages"`
	CrawlMaxDepth            int                   `yaml:"crawl_max_depth"`
	CrawlMaxPages            int                   `yaml:"crawl_max_pages"`
	FetchConcurrency         int                   `yaml:"fetch_concurrency"`
	MinCodeBlockLength       int                   `yaml:"min_code_block_length"`
	ChunkSize                int                   `yaml:"chunk_size"`
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),

		HeartbeatInterval: time.Duration(getenvInt("HEARTBEAT_INTERVAL_SECONDS", 10)) * time.Second,

		StageBounds: DefaultStageBounds(),

		CrawlMaxDepth:    getenvInt("CRAWL_MAX_DEPTH", 3),
		CrawlMaxPages:    getenvInt("CRAWL_MAX_PAGES", 100),
		FetchConcurrency: getenvInt("FETCH_CONCURRENCY", 10),

		MinCodeBlockLength: getenvInt("MIN_CODE_BLOCK_LENGTH", 40),
		ChunkSize:          getenvInt("CHUNK_SIZE", 4000),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	if path := os.Getenv("INGESTER_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			panic(fmt.Errorf("load %s: %w", path, err))
		}
	}
	return cfg
}

// DefaultStageBounds returns the built-in stage → (start%, end%) table.
func DefaultStageBounds() map[string][2]float64 {
	return map[string][2]float64{
		"initialize": {0, 5},
		"fetch":      {5, 40},
		"process":    {40, 70},
		"extract":    {70, 90},
		"finalize":   {90, 100},
	}
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ov fileOverrides
	if err := yaml.Unmarshal(b, &ov); err != nil {
		return err
	}
	if ov.HeartbeatIntervalSeconds > 0 {
		c.HeartbeatInterval = time.Duration(ov.HeartbeatIntervalSeconds) * time.Second
	}
	for stage, band := range ov.Stages {
		if band[1] < band[0] {
			return fmt.Errorf("stage %s: end %.1f below start %.1f", stage, band[1], band[0])
		}
		c.StageBounds[stage] = band
	}
	if ov.CrawlMaxDepth > 0 {
		c.CrawlMaxDepth = ov.CrawlMaxDepth
	}
	if ov.CrawlMaxPages > 0 {
		c.CrawlMaxPages = ov.CrawlMaxPages
	}
	if ov.FetchConcurrency > 0 {
		c.FetchConcurrency = ov.FetchConcurrency
	}
	if ov.MinCodeBlockLength > 0 {
		c.MinCodeBlockLength = ov.MinCodeBlockLength
	}
	if ov.ChunkSize > 0 {
		c.ChunkSize = ov.ChunkSize
	}
	return nil
}
