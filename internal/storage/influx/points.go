package influx

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

const (
	MeasurementIndex = "vegetation_index"
	MeasurementRun   = "analysis_run"
)

// IndexPoint turns one farm's index result into a point stamped at the
// acquisition time. Zone percentages become pct_<zone> fields.
func IndexPoint(farm entities.Farm, idx entities.IndexResult) *write.Point {
	tags := map[string]string{
		"farm_id": farm.ID,
	}
	if farm.CropType != "" {
		tags["crop_type"] = farm.CropType
	}
	if farm.CropStage != "" {
		tags["crop_stage"] = string(farm.CropStage)
	}

	st := idx.Statistics
	fields := map[string]interface{}{
		"mean":         st.Mean,
		"min":          st.Min,
		"max":          st.Max,
		"std":          st.Std,
		"valid_pixels": int64(st.ValidPixelCount),
		"total_pixels": int64(st.TotalPixelCount),
		"alerts":       int64(len(idx.DerivedAlerts)),
	}
	for _, z := range entities.Zones {
		fields["pct_"+string(z)] = idx.Zones.Percent(z)
	}
	return influxdb2.NewPoint(MeasurementIndex, tags, fields, idx.Timestamp)
}

// RunPoint summarizes a run report.
func RunPoint(r entities.RunReport) *write.Point {
	tags := map[string]string{
		"canceled": boolTag(r.Canceled),
	}
	fields := map[string]interface{}{
		"total_farms":      int64(r.TotalFarms),
		"succeeded":        int64(r.Succeeded),
		"failed":           int64(r.Failed),
		"skipped":          int64(r.Skipped),
		"alerts_generated": int64(r.AlertsGenerated),
		"success_rate_pct": r.SuccessRatePercent,
		"execution_ms":     r.ExecutionTimeMs,
	}
	return influxdb2.NewPoint(MeasurementRun, tags, fields, r.Date)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
