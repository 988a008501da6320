package progress

import "sync"

// Mapper translates a (stage, stage-local percent) pair into an overall
// percentage using per-stage bands. The mapped value never decreases for the
// lifetime of a job, even when stage-local callbacks arrive out of order or
// repeat, so pollers always see monotonic progress.
type Mapper struct {
	mu      sync.Mutex
	bounds  map[string][2]float64
	stage   string
	current float64
}

func NewMapper(bounds map[string][2]float64) *Mapper {
	return &Mapper{bounds: bounds}
}

// Map interpolates stagePercent (0-100) into the stage's band and clamps the
// result against the last emitted value. An unknown stage reports the current
// value unchanged rather than guessing a band.
func (m *Mapper) Map(stage string, stagePercent float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	band, ok := m.bounds[stage]
	if !ok {
		return m.current
	}
	if stagePercent < 0 {
		stagePercent = 0
	} else if stagePercent > 100 {
		stagePercent = 100
	}
	v := band[0] + (band[1]-band[0])*stagePercent/100
	if v < m.current {
		v = m.current
	}
	m.stage = stage
	m.current = v
	return v
}

func (m *Mapper) CurrentStage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

func (m *Mapper) CurrentProgress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
