package store

import (
	"context"
	"fmt"
	"time"

	"ingester/internal/logger"
	rds "ingester/internal/platform/redis"

	redisv8 "github.com/go-redis/redis/v8"
)

// RedisStore keeps sources, chunks, and code examples as JSON blobs in
// Redis. Keys never expire; a re-crawl of the same source overwrites them.
type RedisStore struct {
	redis *rds.Service
	log   *logger.Logger
}

func NewRedisStore(redis *rds.Service) *RedisStore {
	return &RedisStore{redis: redis, log: logger.New("Store")}
}

func (s *RedisStore) UpsertSource(ctx context.Context, src Source) error {
	src.UpdatedAt = time.Now()
	if err := s.redis.CacheSet(ctx, sourceKey(src.ID), src, 0); err != nil {
		return fmt.Errorf("upsert source %s: %w", src.ID, err)
	}
	return nil
}

func (s *RedisStore) SaveDocuments(ctx context.Context, sourceID string, docs []Document) error {
	if err := s.redis.CacheSet(ctx, docsKey(sourceID), docs, 0); err != nil {
		return fmt.Errorf("save documents for %s: %w", sourceID, err)
	}
	s.log.LogDebugf("saved %d documents for source %s", len(docs), sourceID)
	return nil
}

func (s *RedisStore) SaveChunks(ctx context.Context, sourceID string, chunks []Chunk) error {
	if err := s.redis.CacheSet(ctx, chunksKey(sourceID), chunks, 0); err != nil {
		return fmt.Errorf("save chunks for %s: %w", sourceID, err)
	}
	s.log.LogDebugf("saved %d chunks for source %s", len(chunks), sourceID)
	return nil
}

func (s *RedisStore) SaveCodeExamples(ctx context.Context, sourceID string, examples []CodeExample) error {
	if err := s.redis.CacheSet(ctx, codeKey(sourceID), examples, 0); err != nil {
		return fmt.Errorf("save code examples for %s: %w", sourceID, err)
	}
	s.log.LogDebugf("saved %d code examples for source %s", len(examples), sourceID)
	return nil
}

func (s *RedisStore) UpdateSourceStatus(ctx context.Context, sourceID string, status SourceStatus) error {
	var src Source
	if err := s.redis.CacheGet(ctx, sourceKey(sourceID), &src); err != nil {
		if err != redisv8.Nil {
			return fmt.Errorf("load source %s: %w", sourceID, err)
		}
		src = Source{ID: sourceID}
	}
	src.Status = status
	src.UpdatedAt = time.Now()
	if err := s.redis.CacheSet(ctx, sourceKey(sourceID), src, 0); err != nil {
		return fmt.Errorf("update source %s status: %w", sourceID, err)
	}
	return nil
}

// GetSource is used by the HTTP surface to report source state.
func (s *RedisStore) GetSource(ctx context.Context, sourceID string) (*Source, error) {
	var src Source
	if err := s.redis.CacheGet(ctx, sourceKey(sourceID), &src); err != nil {
		return nil, fmt.Errorf("source not found: %s", sourceID)
	}
	return &src, nil
}

func sourceKey(id string) string { return "source:" + id }
func docsKey(id string) string   { return "documents:" + id }
func chunksKey(id string) string { return "chunks:" + id }
func codeKey(id string) string   { return "code:" + id }
