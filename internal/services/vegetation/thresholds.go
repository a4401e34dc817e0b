package vegetation

import (
	"fmt"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

// Thresholds split the index range into zones:
// <0 water, [0,Low) bare soil, [Low,Normal) sparse, [Normal,High) moderate, >=High dense.
type Thresholds struct {
	Low    float64 `json:"low" yaml:"low"`
	Normal float64 `json:"normal" yaml:"normal"`
	High   float64 `json:"high" yaml:"high"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.2, Normal: 0.4, High: 0.7}
}

// Validate requires 0 <= Low < Normal < High <= 1.
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 {
		return fmt.Errorf("thresholds out of range: low=%.3f high=%.3f", t.Low, t.High)
	}
	if !(t.Low < t.Normal && t.Normal < t.High) {
		return fmt.Errorf("thresholds must be increasing: low=%.3f normal=%.3f high=%.3f", t.Low, t.Normal, t.High)
	}
	return nil
}

// Classify maps a valid index value to its zone.
func (t Thresholds) Classify(v float64) entities.Zone {
	switch {
	case v < 0:
		return entities.ZoneWater
	case v < t.Low:
		return entities.ZoneBareSoil
	case v < t.Normal:
		return entities.ZoneSparseVegetation
	case v < t.High:
		return entities.ZoneModerateVegetation
	default:
		return entities.ZoneDenseVegetation
	}
}
