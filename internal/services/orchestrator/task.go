package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/cropwatch/internal/services/vegetation"
	"github.com/LeonardoBeccarini/cropwatch/pkg/telemetry"
)

// Pipeline stages, recorded on error records and farm events.
const (
	StageFreshness  = "freshness"
	StageBands      = "bands"
	StageIndex      = "index"
	StageVision     = "vision"
	StageAlerts     = "alerts"
	StageSave       = "save_analysis"
	StageUpdateFarm = "update_farm"
	StagePanic      = "panic"
)

type taskResult struct {
	outcome Outcome
	stage   string
	alerts  int
	err     error
}

// processFarm runs the per-farm pipeline. Every error and panic stops here:
// it is recorded and reported as a failed outcome.
func (o *Orchestrator) processFarm(ctx context.Context, runID string, farm entities.Farm) (res taskResult) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.farm",
		attribute.String("run.id", runID), attribute.String("farm.id", farm.ID))
	defer func() {
		span.SetAttributes(attribute.String("farm.outcome", string(res.outcome)))
		telemetry.EndSpan(span, res.err)
	}()

	defer func() {
		if p := recover(); p != nil {
			res = o.fail(ctx, runID, farm, StagePanic, fmt.Errorf("panic: %v", p))
		}
	}()

	// freshness
	var last *entities.AnalysisSummary
	if err := o.call(ctx, func(ctx context.Context) error {
		var err error
		last, err = o.deps.Analyses.LatestAnalysis(ctx, farm.ID)
		return err
	}); err != nil {
		o.logger.Printf("orchestrator: WARN: latest analysis of farm %s unavailable, using registry timestamp: %v", farm.ID, err)
		last = nil
	}
	now := o.cfg.Now()
	run, reason := ShouldAnalyze(farm, last, now, o.cfg.FreshnessWindow)
	if !run {
		o.logger.Printf("orchestrator: farm %s skipped: analyzed within %s", farm.ID, o.cfg.FreshnessWindow)
		return taskResult{outcome: OutcomeSkipped, stage: StageFreshness}
	}
	span.SetAttributes(attribute.String("farm.reason", reason))

	// bands
	var bands entities.BandSet
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		bands, err = o.deps.Bands.GetBands(ctx, farm, o.cfg.MaxImageAgeDays)
		return err
	})
	if errors.Is(err, model.ErrDataUnavailable) {
		o.logger.Printf("orchestrator: farm %s skipped: no image in the last %d days", farm.ID, o.cfg.MaxImageAgeDays)
		return taskResult{outcome: OutcomeSkipped, stage: StageBands}
	}
	if err != nil {
		return o.fail(ctx, runID, farm, StageBands, err)
	}

	// index
	idx, err := vegetation.ComputeIndex(bands.NIR, bands.Red, o.cfg.Thresholds)
	if err != nil {
		return o.fail(ctx, runID, farm, StageIndex, err)
	}

	image, err := vegetation.RenderVisualization(idx.Values, idx.Width, idx.Height, o.cfg.Thresholds)
	if err != nil {
		o.logger.Printf("orchestrator: WARN: visualization for farm %s not rendered: %v", farm.ID, err)
		image = nil
	}
	uri := o.storeImage(ctx, runID, farm, now, image)

	// vision
	var vision entities.VisionResult
	fc := entities.FarmContext{
		FarmID:       farm.ID,
		CropType:     farm.CropType,
		CropStage:    farm.CropStage,
		AreaHectares: farm.AreaHectares,
	}
	if err := o.call(ctx, func(ctx context.Context) error {
		var err error
		vision, err = o.deps.Vision.Analyze(ctx, image, fc, idx)
		return err
	}); err != nil {
		return o.fail(ctx, runID, farm, StageVision, err)
	}

	// alerts: persistence and dispatch failures degrade inside Combine
	actx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	combined := o.deps.Alerts.Combine(actx, farm, idx, vision.Findings)
	cancel()

	rec := entities.AnalysisRecord{
		FarmID:           farm.ID,
		AnalyzedAt:       now.UTC(),
		SensingDate:      bands.SensingDate,
		CloudCoverage:    bands.CloudCoverage,
		Index:            idx,
		Vision:           &vision,
		AlertCount:       len(combined.Alerts),
		VisualizationURI: uri,
	}
	if err := o.call(ctx, func(ctx context.Context) error {
		return o.deps.Analyses.SaveAnalysis(ctx, rec)
	}); err != nil {
		return o.fail(ctx, runID, farm, StageSave, err)
	}
	if err := o.call(ctx, func(ctx context.Context) error {
		return o.deps.Farms.UpdateLastAnalyzedAt(ctx, farm.ID, now.UTC())
	}); err != nil {
		return o.fail(ctx, runID, farm, StageUpdateFarm, err)
	}

	if o.deps.Series != nil {
		o.deps.Series.WriteIndex(farm, idx)
	}
	o.logger.Printf("orchestrator: farm %s analyzed (%s): mean=%.3f alerts=%d", farm.ID, reason, idx.Statistics.Mean, len(combined.Alerts))
	return taskResult{outcome: OutcomeSucceeded, alerts: len(combined.Alerts)}
}

// call bounds one external call with the configured timeout.
func (o *Orchestrator) call(ctx context.Context, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	return fn(cctx)
}

func (o *Orchestrator) storeImage(ctx context.Context, runID string, farm entities.Farm, at time.Time, image []byte) string {
	if o.deps.Artifacts == nil || len(image) == 0 {
		return ""
	}
	var uri string
	if err := o.call(ctx, func(ctx context.Context) error {
		var err error
		uri, err = o.deps.Artifacts.PutVisualization(ctx, farm.ID, runID, at, image)
		return err
	}); err != nil {
		o.logger.Printf("orchestrator: WARN: visualization for farm %s not stored: %v", farm.ID, err)
		return ""
	}
	return uri
}

// fail records the error and returns a failed outcome.
func (o *Orchestrator) fail(ctx context.Context, runID string, farm entities.Farm, stage string, err error) taskResult {
	o.logger.Printf("orchestrator: farm %s failed at %s: %v", farm.ID, stage, err)
	rec := entities.ErrorRecord{
		FarmID:  farm.ID,
		RunID:   runID,
		Stage:   stage,
		Message: err.Error(),
		Context: map[string]any{
			"kind":       errorKind(err),
			"crop_type":  farm.CropType,
			"priority":   string(farm.Priority),
			"crop_stage": string(farm.CropStage),
		},
		OccurredAt: o.cfg.Now().UTC(),
	}
	if serr := o.call(ctx, func(ctx context.Context) error {
		return o.deps.Analyses.SaveError(ctx, rec)
	}); serr != nil {
		o.logger.Printf("orchestrator: WARN: error record for farm %s not saved: %v", farm.ID, serr)
	}
	return taskResult{outcome: OutcomeFailed, stage: stage, err: err}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case model.IsExternal(err):
		return "external_service"
	case model.IsPersistence(err):
		return "persistence"
	default:
		return "internal"
	}
}
