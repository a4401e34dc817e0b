package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/cropwatch/pkg/telemetry"
)

// Orchestrator drives nightly analysis runs over the active farm fleet.
// One instance owns its state and statistics; runs never overlap.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger *log.Logger

	state atomic.Int32
	stats RunStatistics

	mu         sync.Mutex
	runID      string
	cancel     context.CancelFunc
	lastReport *entities.RunReport
}

func New(deps Deps, cfg Config) (*Orchestrator, error) {
	cfg.setDefaults()
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Farms == nil:
		return nil, errors.New("orchestrator: farm repository is required")
	case deps.Analyses == nil:
		return nil, errors.New("orchestrator: analysis repository is required")
	case deps.Bands == nil:
		return nil, errors.New("orchestrator: band provider is required")
	case deps.Vision == nil:
		return nil, errors.New("orchestrator: vision provider is required")
	case deps.Alerts == nil:
		return nil, errors.New("orchestrator: alert aggregator is required")
	}
	return &Orchestrator{deps: deps, cfg: cfg, logger: cfg.Logger}, nil
}

func (o *Orchestrator) State() State { return State(o.state.Load()) }

// begin moves any non-running state to Running. False means a run is live.
func (o *Orchestrator) begin() bool {
	for {
		cur := o.state.Load()
		if State(cur) == StateRunning {
			return false
		}
		if o.state.CompareAndSwap(cur, int32(StateRunning)) {
			return true
		}
	}
}

// Run executes one run synchronously. While another run is live it logs a
// warning and returns nil, nil without touching state or statistics.
func (o *Orchestrator) Run(ctx context.Context) (*entities.RunReport, error) {
	if !o.begin() {
		o.logger.Printf("orchestrator: WARN: %v, start request ignored", model.ErrRunInProgress)
		return nil, nil
	}
	return o.execute(ctx)
}

// Trigger starts a run in the background. It returns model.ErrRunInProgress
// instead of starting a second run.
func (o *Orchestrator) Trigger(ctx context.Context) error {
	if !o.begin() {
		o.logger.Printf("orchestrator: WARN: %v, trigger ignored", model.ErrRunInProgress)
		return model.ErrRunInProgress
	}
	go func() {
		if _, err := o.execute(ctx); err != nil {
			o.logger.Printf("orchestrator: run failed: %v", err)
		}
	}()
	return nil
}

// Stop asks the live run to stop before its next batch. In-flight farm
// tasks finish normally. Reports whether a run was live.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel == nil {
		return false
	}
	o.logger.Printf("orchestrator: stop requested")
	cancel()
	return true
}

// Status is what the control API exposes.
type Status struct {
	State      string              `json:"state"`
	RunID      string              `json:"run_id,omitempty"`
	Statistics Snapshot            `json:"statistics"`
	LastReport *entities.RunReport `json:"last_report,omitempty"`
	Breakers   map[string]string   `json:"breakers,omitempty"`
}

func (o *Orchestrator) Status(ctx context.Context) Status {
	o.mu.Lock()
	runID, last := o.runID, o.lastReport
	o.mu.Unlock()
	if last == nil && o.deps.Reports != nil {
		if r, err := o.deps.Reports.LatestRunReport(ctx); err == nil {
			last = r
		}
	}
	return Status{
		State:      o.State().String(),
		RunID:      runID,
		Statistics: o.stats.Snapshot(o.cfg.Now()),
		LastReport: last,
	}
}

func (o *Orchestrator) execute(parent context.Context) (report *entities.RunReport, err error) {
	runCtx, cancel := context.WithCancel(parent)
	defer cancel()

	runID := uuid.NewString()
	started := o.cfg.Now()
	o.stats.reset(started)
	o.mu.Lock()
	o.runID, o.cancel = runID, cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	// Hooks, persistence and notifications must not be cut short by Stop.
	bg := context.WithoutCancel(runCtx)
	bg, span := telemetry.StartSpan(bg, "orchestrator.run", attribute.String("run.id", runID))
	defer func() { telemetry.EndSpan(span, err) }()
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		report, err = nil, fmt.Errorf("run %s panicked: %v", runID, p)
		o.stats.finish(o.cfg.Now())
		o.state.Store(int32(StateFailed))
		o.logger.Printf("orchestrator: run %s failed: %v", runID, err)
		o.guard("run finish", func() {
			o.cfg.Hooks.runFinish(bg, RunEvent{RunID: runID, StartedAt: started, State: StateFailed, Err: err})
		})
	}()

	o.logger.Printf("orchestrator: run %s started", runID)
	o.guard("run start", func() {
		o.cfg.Hooks.runStart(bg, RunEvent{RunID: runID, StartedAt: started, State: StateRunning})
	})

	farms, err := o.deps.Farms.ListActiveFarms(bg)
	if err != nil {
		o.stats.finish(o.cfg.Now())
		o.state.Store(int32(StateFailed))
		err = fmt.Errorf("list active farms: %w", err)
		o.logger.Printf("orchestrator: run %s failed: %v", runID, err)
		o.notifyFailure(bg, runID, err)
		o.guard("run finish", func() {
			o.cfg.Hooks.runFinish(bg, RunEvent{RunID: runID, StartedAt: started, State: StateFailed, Err: err})
		})
		return nil, err
	}
	o.stats.total.Store(int64(len(farms)))

	batches := partition(farms, o.cfg.BatchSize)
	span.SetAttributes(attribute.Int("run.farms", len(farms)), attribute.Int("run.batches", len(batches)))
	o.logger.Printf("orchestrator: run %s: %d farms in %d batches of up to %d", runID, len(farms), len(batches), o.cfg.BatchSize)

	var (
		canceled    bool
		batchesDone int
		failedIDs   = []string{}
		skippedIDs  = []string{}
	)
	for i, batch := range batches {
		if i > 0 && o.cfg.InterBatchDelay > 0 {
			if err := o.cfg.Sleep(runCtx, o.cfg.InterBatchDelay); err != nil {
				canceled = true
				break
			}
		}
		if runCtx.Err() != nil {
			canceled = true
			break
		}
		results := o.runBatch(runCtx, runID, batch)
		batchesDone++
		for _, r := range results {
			switch r.Outcome {
			case OutcomeFailed:
				failedIDs = append(failedIDs, r.FarmID)
			case OutcomeSkipped:
				skippedIDs = append(skippedIDs, r.FarmID)
			}
		}
	}
	if canceled {
		o.logger.Printf("orchestrator: run %s stopped after %d of %d batches", runID, batchesDone, len(batches))
	}

	finished := o.cfg.Now()
	o.stats.finish(finished)
	snap := o.stats.Snapshot(finished)
	rep := entities.RunReport{
		ID:                 runID,
		Date:               started.UTC(),
		TotalFarms:         snap.TotalFarms,
		Succeeded:          snap.Succeeded,
		Failed:             snap.Failed,
		Skipped:            snap.Skipped,
		AlertsGenerated:    snap.AlertsGenerated,
		SuccessRatePercent: snap.SuccessRate(),
		ExecutionTimeMs:    snap.DurationMs,
		Canceled:           canceled,
		ReportData: map[string]any{
			"batches":          len(batches),
			"batches_executed": batchesDone,
			"batch_size":       o.cfg.BatchSize,
			"failed_farms":     failedIDs,
			"skipped_farms":    skippedIDs,
			"not_started":      snap.NotStarted(),
		},
	}

	if o.deps.Reports != nil {
		if err := o.deps.Reports.SaveRunReport(bg, rep); err != nil {
			o.logger.Printf("orchestrator: WARN: run report %s not saved: %v", runID, err)
		}
	}
	if o.deps.Series != nil {
		o.deps.Series.WriteRun(rep)
	}
	o.notifySummary(bg, rep)

	o.mu.Lock()
	o.lastReport = &rep
	o.mu.Unlock()
	o.state.Store(int32(StateCompleted))

	o.logger.Printf("orchestrator: run %s completed: total=%d succeeded=%d failed=%d skipped=%d alerts=%d rate=%.1f%% in %dms",
		runID, rep.TotalFarms, rep.Succeeded, rep.Failed, rep.Skipped, rep.AlertsGenerated, rep.SuccessRatePercent, rep.ExecutionTimeMs)
	o.guard("run finish", func() {
		o.cfg.Hooks.runFinish(bg, RunEvent{RunID: runID, StartedAt: started, State: StateCompleted, Report: &rep})
	})
	return &rep, nil
}

// guard runs an observer callback. A panic inside it is logged and dropped.
func (o *Orchestrator) guard(what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Printf("orchestrator: WARN: %s hook panicked: %v", what, p)
		}
	}()
	fn()
}

type farmResult struct {
	FarmID  string
	Outcome Outcome
}

// runBatch runs one task per farm and waits for all of them. Tasks get a
// context that ignores Stop so they always complete.
func (o *Orchestrator) runBatch(runCtx context.Context, runID string, batch []entities.Farm) []farmResult {
	taskCtx := context.WithoutCancel(runCtx)
	results := make([]farmResult, len(batch))

	var wg sync.WaitGroup
	for i, farm := range batch {
		wg.Add(1)
		go func(i int, farm entities.Farm) {
			defer wg.Done()
			start := o.cfg.Now()
			res := o.processFarm(taskCtx, runID, farm)
			o.stats.record(res.outcome, res.alerts)
			results[i] = farmResult{FarmID: farm.ID, Outcome: res.outcome}
			ev := FarmEvent{
				RunID:    runID,
				FarmID:   farm.ID,
				Outcome:  res.outcome,
				Stage:    res.stage,
				Alerts:   res.alerts,
				Duration: o.cfg.Now().Sub(start),
				Err:      res.err,
			}
			o.guard("farm done", func() { o.cfg.Hooks.farmDone(taskCtx, ev) })
		}(i, farm)
	}
	wg.Wait()
	return results
}
