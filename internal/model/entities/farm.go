package entities

import "time"

// Priority of a farm in the registry.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// CropStage is the phenological stage reported by the farm registry.
type CropStage string

const (
	StageEmergence  CropStage = "emergence"
	StageVegetative CropStage = "vegetative"
	StageCritical   CropStage = "critical" // flowering / grain fill, always re-analysed
	StageMaturity   CropStage = "maturity"
)

// Farm represents a land parcel owned by the farm registry.
// The orchestrator only reads identity/eligibility fields and writes LastAnalyzedAt.
type Farm struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	CropType       string         `json:"crop_type"` // e.g. "corn", "wheat"
	AreaHectares   float64        `json:"area_ha"`
	Priority       Priority       `json:"priority"`
	CropStage      CropStage      `json:"crop_stage"`
	Geometry       map[string]any `json:"geometry"` // GeoJSON Polygon/MultiPolygon
	Contact        string         `json:"contact,omitempty"`
	LastAnalyzedAt *time.Time     `json:"last_analyzed_at,omitempty"`
	Active         bool           `json:"active"`
}
