package orchestrator

import (
	"context"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

// RunEvent describes a run boundary. Report is nil on start and on failure.
type RunEvent struct {
	RunID     string
	StartedAt time.Time
	State     State
	Report    *entities.RunReport
	Err       error
}

// FarmEvent is emitted once per farm outcome.
type FarmEvent struct {
	RunID    string
	FarmID   string
	Outcome  Outcome
	Stage    string
	Alerts   int
	Duration time.Duration
	Err      error
}

type (
	RunHookFunc  func(ctx context.Context, ev RunEvent)
	FarmHookFunc func(ctx context.Context, ev FarmEvent)
)

// Hooks observe a run. Farm hooks run on the task goroutine and must be
// safe for concurrent use.
type Hooks struct {
	OnRunStart  RunHookFunc
	OnRunFinish RunHookFunc
	OnFarmDone  FarmHookFunc
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnRunStart:  chainRunHooks(h.OnRunStart, other.OnRunStart),
		OnRunFinish: chainRunHooks(h.OnRunFinish, other.OnRunFinish),
		OnFarmDone:  chainFarmHooks(h.OnFarmDone, other.OnFarmDone),
	}
}

func chainRunHooks(first, second RunHookFunc) RunHookFunc {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(ctx context.Context, ev RunEvent) {
			first(ctx, ev)
			second(ctx, ev)
		}
	}
}

func chainFarmHooks(first, second FarmHookFunc) FarmHookFunc {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(ctx context.Context, ev FarmEvent) {
			first(ctx, ev)
			second(ctx, ev)
		}
	}
}

func (h Hooks) runStart(ctx context.Context, ev RunEvent) {
	if h.OnRunStart != nil {
		h.OnRunStart(ctx, ev)
	}
}

func (h Hooks) runFinish(ctx context.Context, ev RunEvent) {
	if h.OnRunFinish != nil {
		h.OnRunFinish(ctx, ev)
	}
}

func (h Hooks) farmDone(ctx context.Context, ev FarmEvent) {
	if h.OnFarmDone != nil {
		h.OnFarmDone(ctx, ev)
	}
}
