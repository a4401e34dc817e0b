package vegetation

import (
	"fmt"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

const (
	// VariabilityStdLimit: a std above this flags uneven canopy.
	VariabilityStdLimit = 0.2
	// BareSoilPercentLimit: share of bare soil pixels above which the farm is flagged.
	BareSoilPercentLimit = 30.0
)

// alertRule fires on aggregate statistics, never on single pixels.
type alertRule struct {
	Type           string
	Severity       entities.Severity
	Title          string
	Recommendation string
	Fires          func(s entities.Statistics, z entities.ZoneHistogram, th Thresholds) bool
	Describe       func(s entities.Statistics, z entities.ZoneHistogram, th Thresholds) string
}

// Rules are independent and may co-fire. Stress and healthy exclude each other since Low < High.
var alertRules = []alertRule{
	{
		Type:           entities.AlertVegetationStress,
		Severity:       entities.SeverityHigh,
		Title:          "Vegetation stress detected",
		Recommendation: "Inspect the field for water or nutrient deficiency and check irrigation.",
		Fires: func(s entities.Statistics, _ entities.ZoneHistogram, th Thresholds) bool {
			return s.Mean < th.Low
		},
		Describe: func(s entities.Statistics, _ entities.ZoneHistogram, th Thresholds) string {
			return fmt.Sprintf("Mean NDVI %.3f is below the stress threshold %.2f.", s.Mean, th.Low)
		},
	},
	{
		Type:           entities.AlertHighVariability,
		Severity:       entities.SeverityMedium,
		Title:          "High variability across the field",
		Recommendation: "Scout the weakest zones; consider variable-rate fertilization.",
		Fires: func(s entities.Statistics, _ entities.ZoneHistogram, _ Thresholds) bool {
			return s.Std > VariabilityStdLimit
		},
		Describe: func(s entities.Statistics, _ entities.ZoneHistogram, _ Thresholds) string {
			return fmt.Sprintf("NDVI standard deviation %.3f exceeds %.2f.", s.Std, VariabilityStdLimit)
		},
	},
	{
		Type:           entities.AlertExcessiveBareSoil,
		Severity:       entities.SeverityMedium,
		Title:          "Excessive bare soil",
		Recommendation: "Check for poor emergence, erosion or missed sowing rows.",
		Fires: func(_ entities.Statistics, z entities.ZoneHistogram, _ Thresholds) bool {
			return z.Percent(entities.ZoneBareSoil) > BareSoilPercentLimit
		},
		Describe: func(_ entities.Statistics, z entities.ZoneHistogram, _ Thresholds) string {
			return fmt.Sprintf("%.1f%% of the field is bare soil (limit %.0f%%).", z.Percent(entities.ZoneBareSoil), BareSoilPercentLimit)
		},
	},
	{
		Type:           entities.AlertHealthyVegetation,
		Severity:       entities.SeverityInfo,
		Title:          "Healthy vegetation",
		Recommendation: "No action needed; keep the current management plan.",
		Fires: func(s entities.Statistics, _ entities.ZoneHistogram, th Thresholds) bool {
			return s.Mean > th.High
		},
		Describe: func(s entities.Statistics, _ entities.ZoneHistogram, th Thresholds) string {
			return fmt.Sprintf("Mean NDVI %.3f is above %.2f.", s.Mean, th.High)
		},
	},
}

func deriveAlerts(s entities.Statistics, z entities.ZoneHistogram, th Thresholds) []entities.DerivedAlert {
	out := []entities.DerivedAlert{}
	if s.ValidPixelCount == 0 {
		return out
	}
	for _, r := range alertRules {
		if !r.Fires(s, z, th) {
			continue
		}
		out = append(out, entities.DerivedAlert{
			Type:           r.Type,
			Severity:       r.Severity,
			Title:          r.Title,
			Description:    r.Describe(s, z, th),
			Recommendation: r.Recommendation,
			Metadata: map[string]any{
				"mean":              s.Mean,
				"std":               s.Std,
				"bare_soil_pct":     z.Percent(entities.ZoneBareSoil),
				"valid_pixel_count": s.ValidPixelCount,
			},
		})
	}
	return out
}
