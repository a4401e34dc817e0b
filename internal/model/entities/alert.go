package entities

import "time"

// Severity of a unified alert. Totally ordered: high > medium > low > info.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// AlertSource tells where an alert originated.
type AlertSource string

const (
	SourceIndex  AlertSource = "index"
	SourceVision AlertSource = "vision"
	SourceSystem AlertSource = "system"
)

// Alert types produced by the index rule table.
const (
	AlertVegetationStress  = "vegetation_stress"
	AlertHighVariability   = "high_variability"
	AlertExcessiveBareSoil = "excessive_bare_soil"
	AlertHealthyVegetation = "healthy_vegetation"
)

// Alert is the unified alert shape. ID is assigned by the repository.
type Alert struct {
	ID             string         `json:"id,omitempty"`
	FarmID         string         `json:"farm_id"`
	Type           string         `json:"type"`
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation,omitempty"`
	Source         AlertSource    `json:"source"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AlertKey identifies duplicates within one aggregation.
type AlertKey struct {
	FarmID   string
	Type     string
	Severity Severity
}

// Key compares types exactly; producers emit normalized lowercase types.
func (a Alert) Key() AlertKey {
	return AlertKey{FarmID: a.FarmID, Type: a.Type, Severity: a.Severity}
}
