package orchestrator

import (
	"sync/atomic"
	"time"
)

// Outcome of one farm task.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// RunStatistics is written concurrently by farm tasks through atomics only.
type RunStatistics struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	alerts    atomic.Int64
	startedAt atomic.Int64 // unix nanos
	finished  atomic.Int64 // unix nanos, 0 while running
}

// Snapshot is a consistent-enough copy for reporting.
type Snapshot struct {
	TotalFarms      int       `json:"total_farms"`
	Succeeded       int       `json:"succeeded"`
	Failed          int       `json:"failed"`
	Skipped         int       `json:"skipped"`
	AlertsGenerated int       `json:"alerts_generated"`
	StartedAt       time.Time `json:"started_at"`
	DurationMs      int64     `json:"duration_ms"`
}

func (s *RunStatistics) reset(now time.Time) {
	s.total.Store(0)
	s.succeeded.Store(0)
	s.failed.Store(0)
	s.skipped.Store(0)
	s.alerts.Store(0)
	s.finished.Store(0)
	s.startedAt.Store(now.UnixNano())
}

// record folds one farm outcome in. Called exactly once per farm.
func (s *RunStatistics) record(o Outcome, alerts int) {
	switch o {
	case OutcomeSucceeded:
		s.succeeded.Add(1)
		s.alerts.Add(int64(alerts))
	case OutcomeSkipped:
		s.skipped.Add(1)
	default:
		s.failed.Add(1)
	}
}

func (s *RunStatistics) finish(now time.Time) { s.finished.Store(now.UnixNano()) }

// Snapshot reads the counters; duration runs up to now while the run is live.
func (s *RunStatistics) Snapshot(now time.Time) Snapshot {
	started := s.startedAt.Load()
	end := s.finished.Load()
	if end == 0 {
		end = now.UnixNano()
	}
	snap := Snapshot{
		TotalFarms:      int(s.total.Load()),
		Succeeded:       int(s.succeeded.Load()),
		Failed:          int(s.failed.Load()),
		Skipped:         int(s.skipped.Load()),
		AlertsGenerated: int(s.alerts.Load()),
	}
	if started != 0 {
		snap.StartedAt = time.Unix(0, started).UTC()
		snap.DurationMs = time.Duration(end - started).Milliseconds()
	}
	return snap
}

// NotStarted counts farms a stopped run never reached.
func (s Snapshot) NotStarted() int {
	if n := s.TotalFarms - s.Succeeded - s.Failed - s.Skipped; n > 0 {
		return n
	}
	return 0
}

// SuccessRate is succeeded over finished (succeeded plus failed) in percent.
// Skipped and never-started farms do not count. A run that processed nothing
// is a 100% success.
func (s Snapshot) SuccessRate() float64 {
	processed := s.Succeeded + s.Failed
	if processed <= 0 {
		return 100
	}
	return float64(s.Succeeded) / float64(processed) * 100
}
