package alerting

import (
	"strings"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

// visionSeverities maps provider tags onto alert severities.
var visionSeverities = map[entities.VisionSeverity]entities.Severity{
	entities.VisionCritical: entities.SeverityHigh,
	entities.VisionHigh:     entities.SeverityHigh,
	entities.VisionMedium:   entities.SeverityMedium,
	entities.VisionLow:      entities.SeverityLow,
	entities.VisionInfo:     entities.SeverityInfo,
}

// fallbackSeverity is used for tags outside the table ("unmapped" included).
const fallbackSeverity = entities.SeverityMedium

// MapVisionSeverity never drops a finding: unknown tags become medium.
func MapVisionSeverity(s entities.VisionSeverity) entities.Severity {
	key := entities.VisionSeverity(strings.ToLower(strings.TrimSpace(string(s))))
	if sev, ok := visionSeverities[key]; ok {
		return sev
	}
	return fallbackSeverity
}
