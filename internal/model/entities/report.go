package entities

import "time"

// RunReport is persisted once per completed orchestrator run.
type RunReport struct {
	ID                 string         `json:"id"`
	Date               time.Time      `json:"date"`
	TotalFarms         int            `json:"total_farms"`
	Succeeded          int            `json:"succeeded"`
	Failed             int            `json:"failed"`
	Skipped            int            `json:"skipped"`
	AlertsGenerated    int            `json:"alerts_generated"`
	SuccessRatePercent float64        `json:"success_rate_percent"`
	ExecutionTimeMs    int64          `json:"execution_time_ms"`
	Canceled           bool           `json:"canceled"`
	ReportData         map[string]any `json:"report_data,omitempty"`
}

// AnalysisRecord is what the analysis repository stores per successful farm.
type AnalysisRecord struct {
	FarmID           string        `json:"farm_id"`
	AnalyzedAt       time.Time     `json:"analyzed_at"`
	SensingDate      time.Time     `json:"sensing_date"`
	CloudCoverage    float64       `json:"cloud_coverage"`
	Index            IndexResult   `json:"index"`
	Vision           *VisionResult `json:"vision,omitempty"`
	AlertCount       int           `json:"alert_count"`
	VisualizationURI string        `json:"visualization_uri,omitempty"`
}

// AnalysisSummary is the slice of the latest analysis the freshness policy needs.
type AnalysisSummary struct {
	FarmID     string    `json:"farm_id"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	RiskLevel  string    `json:"risk_level"`
}

// ErrorRecord documents a failed farm pipeline.
type ErrorRecord struct {
	FarmID     string         `json:"farm_id"`
	RunID      string         `json:"run_id"`
	Stage      string         `json:"stage"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
