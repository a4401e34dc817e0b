package entities

// VisionSeverity is the severity tag attached by the vision provider.
type VisionSeverity string

const (
	VisionCritical VisionSeverity = "critical"
	VisionHigh     VisionSeverity = "high"
	VisionMedium   VisionSeverity = "medium"
	VisionLow      VisionSeverity = "low"
	VisionInfo     VisionSeverity = "info"
	VisionUnmapped VisionSeverity = "unmapped"
)

// VisionFinding is one structured observation from the AI vision provider.
type VisionFinding struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Severity    VisionSeverity `json:"severity"`
	Confidence  float64        `json:"confidence"` // 0..100
}

// VisionResult is the full provider answer for one farm.
type VisionResult struct {
	Findings          []VisionFinding `json:"findings"`
	ConfidenceOverall float64         `json:"confidence_overall"`
	RiskLevel         string          `json:"risk_level"` // low | medium | high
	Summary           string          `json:"summary"`
}

// HighRisk reports whether the provider flagged the farm as high risk.
func (v VisionResult) HighRisk() bool {
	return v.RiskLevel == "high" || v.RiskLevel == "critical"
}

// FarmContext is what the vision provider gets to know about the parcel.
type FarmContext struct {
	FarmID       string    `json:"farm_id"`
	CropType     string    `json:"crop_type"`
	CropStage    CropStage `json:"crop_stage"`
	AreaHectares float64   `json:"area_ha"`
}
