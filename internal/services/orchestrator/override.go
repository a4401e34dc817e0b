package orchestrator

import (
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

// overrideRule forces analysis of a fresh farm.
type overrideRule struct {
	name    string
	applies func(f entities.Farm, last *entities.AnalysisSummary) bool
}

// overrideRules is the complete force-analysis policy.
var overrideRules = []overrideRule{
	{
		name:    "high_priority",
		applies: func(f entities.Farm, _ *entities.AnalysisSummary) bool { return f.Priority == entities.PriorityHigh },
	},
	{
		name:    "critical_stage",
		applies: func(f entities.Farm, _ *entities.AnalysisSummary) bool { return f.CropStage == entities.StageCritical },
	},
	{
		name: "last_run_high_risk",
		applies: func(_ entities.Farm, last *entities.AnalysisSummary) bool {
			return last != nil && (last.RiskLevel == "high" || last.RiskLevel == "critical")
		},
	},
}

// OverrideReason returns the first matching rule name.
func OverrideReason(f entities.Farm, last *entities.AnalysisSummary) (string, bool) {
	for _, r := range overrideRules {
		if r.applies(f, last) {
			return r.name, true
		}
	}
	return "", false
}

// lastAnalyzed prefers the analysis repository over the farm registry field.
func lastAnalyzed(f entities.Farm, last *entities.AnalysisSummary) *time.Time {
	if last != nil && !last.AnalyzedAt.IsZero() {
		t := last.AnalyzedAt
		return &t
	}
	return f.LastAnalyzedAt
}

// ShouldAnalyze decides whether a farm task runs the pipeline. reason is
// "stale", "never_analyzed", an override rule name, or "fresh" when skipped.
func ShouldAnalyze(f entities.Farm, last *entities.AnalysisSummary, now time.Time, window time.Duration) (bool, string) {
	at := lastAnalyzed(f, last)
	if at == nil {
		return true, "never_analyzed"
	}
	if now.Sub(*at) >= window {
		return true, "stale"
	}
	if name, ok := OverrideReason(f, last); ok {
		return true, name
	}
	return false, "fresh"
}
