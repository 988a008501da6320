package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ingester/internal/logger"
	rds "ingester/internal/platform/redis"
)

// Status values stored for pollers. A job is "running" from the first real
// update until it reaches a terminal status.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

const maxLogLines = 50

// State is the JSON document pollers read via GET /v1/jobs/:id.
type State struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message"`
	Logs      []string  `json:"logs,omitempty"`
	Result    Payload   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisSink persists per-job progress state in Redis and publishes an update
// event on the job channel so SSE listeners wake without polling.
type RedisSink struct {
	redis *rds.Service
	jobID string
	log   *logger.Logger

	mu    sync.Mutex
	state State
	last  time.Time
}

func NewRedisSink(redis *rds.Service, jobID string) *RedisSink {
	return &RedisSink{
		redis: redis,
		jobID: jobID,
		log:   logger.New("Progress"),
		state: State{JobID: jobID, Status: StatusPending},
	}
}

func (s *RedisSink) Start(ctx context.Context, initial Payload) error {
	s.mu.Lock()
	s.state.Status = StatusPending
	s.state.Progress = 0
	s.state.Result = initial
	s.touch()
	st := s.state
	s.mu.Unlock()
	return s.store(ctx, st)
}

func (s *RedisSink) Update(ctx context.Context, stage string, percent float64, message string, extra Payload) error {
	s.mu.Lock()
	if s.state.Status == StatusPending {
		s.state.Status = StatusRunning
	}
	if status, ok := extra["status"].(string); ok && status != "" {
		s.state.Status = status
	}
	s.state.Stage = stage
	s.state.Progress = percent
	s.state.Message = message
	if hb, _ := extra["heartbeat"].(bool); !hb {
		// Heartbeats refresh the timestamp but carry no new information
		// worth keeping in the log tail.
		s.state.Logs = append(s.state.Logs, fmt.Sprintf("[%s] %s", stage, message))
		if len(s.state.Logs) > maxLogLines {
			s.state.Logs = s.state.Logs[len(s.state.Logs)-maxLogLines:]
		}
	}
	s.touch()
	st := s.state
	s.mu.Unlock()
	return s.store(ctx, st)
}

func (s *RedisSink) Complete(ctx context.Context, result Payload) error {
	s.mu.Lock()
	s.state.Status = StatusCompleted
	s.state.Progress = 100
	s.state.Message = "completed"
	s.state.Result = result
	s.touch()
	st := s.state
	s.mu.Unlock()
	return s.store(ctx, st)
}

func (s *RedisSink) Error(ctx context.Context, message string) error {
	s.mu.Lock()
	s.state.Status = StatusFailed
	s.state.Error = message
	s.state.Message = message
	s.touch()
	st := s.state
	s.mu.Unlock()
	return s.store(ctx, st)
}

func (s *RedisSink) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *RedisSink) touch() {
	s.last = time.Now()
	s.state.UpdatedAt = s.last
}

func (s *RedisSink) store(ctx context.Context, st State) error {
	if err := s.redis.CacheSet(ctx, stateKey(s.jobID), st, ttl(st.Status)); err != nil {
		s.log.LogWarnf("persist progress for job %s failed: %v", s.jobID, err)
		return err
	}
	// Best effort wakeup for listeners.
	_ = s.redis.Publish(ctx, stateKey(s.jobID), "updated")
	return nil
}

// LoadState reads the persisted progress document for a job.
func LoadState(ctx context.Context, redis *rds.Service, jobID string) (*State, error) {
	var st State
	if err := redis.CacheGet(ctx, stateKey(jobID), &st); err != nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &st, nil
}

func stateKey(id string) string { return "job:" + id }

func ttl(status string) int {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return 3600
	}
	return 600
}
