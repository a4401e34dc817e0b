package orchestrator

import (
	"context"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/cropwatch/internal/services/alerting"
)

// FarmRepository lists eligible farms and records successful analyses.
type FarmRepository interface {
	ListActiveFarms(ctx context.Context) ([]entities.Farm, error)
	UpdateLastAnalyzedAt(ctx context.Context, farmID string, at time.Time) error
}

type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, rec entities.AnalysisRecord) error
	SaveError(ctx context.Context, rec entities.ErrorRecord) error
	// LatestAnalysis returns nil, nil for a farm never analyzed.
	LatestAnalysis(ctx context.Context, farmID string) (*entities.AnalysisSummary, error)
}

type ReportRepository interface {
	SaveRunReport(ctx context.Context, r entities.RunReport) error
	LatestRunReport(ctx context.Context) (*entities.RunReport, error)
}

// BandDataProvider returns model.ErrDataUnavailable when no recent image exists.
type BandDataProvider interface {
	GetBands(ctx context.Context, farm entities.Farm, maxAgeDays int) (entities.BandSet, error)
}

type VisionFindingsProvider interface {
	Analyze(ctx context.Context, image []byte, farm entities.FarmContext, idx entities.IndexResult) (entities.VisionResult, error)
}

// AlertCombiner is satisfied by *alerting.Aggregator.
type AlertCombiner interface {
	Combine(ctx context.Context, farm entities.Farm, idx entities.IndexResult, findings []entities.VisionFinding) alerting.Result
}

// ArtifactStore keeps rendered index images. Optional.
type ArtifactStore interface {
	PutVisualization(ctx context.Context, farmID, runID string, at time.Time, png []byte) (string, error)
}

// SeriesWriter receives index and run points. Optional.
type SeriesWriter interface {
	WriteIndex(farm entities.Farm, idx entities.IndexResult)
	WriteRun(r entities.RunReport)
}

// Deps are the collaborators of one orchestrator instance.
type Deps struct {
	Farms     FarmRepository
	Analyses  AnalysisRepository
	Reports   ReportRepository
	Bands     BandDataProvider
	Vision    VisionFindingsProvider
	Alerts    AlertCombiner
	Admin     alerting.NotificationDispatcher
	Artifacts ArtifactStore
	Series    SeriesWriter
}
