package vegetation

import (
	"fmt"
	"math"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

// ComputeIndex derives the normalized difference vegetation index from two
// aligned rasters, its statistics, the zone histogram and the rule-table alerts.
// It has no side effects: the same rasters and thresholds always give the same result.
func ComputeIndex(nir, red entities.BandRaster, th Thresholds) (entities.IndexResult, error) {
	if err := checkShape(nir, red); err != nil {
		return entities.IndexResult{}, err
	}

	n := nir.Pixels()
	nirScale, redScale := scaleOf(nir), scaleOf(red)

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = pixelIndex(normalize(nir.Values[i], nirScale), normalize(red.Values[i], redScale))
	}

	stats, zones := summarize(values, th)
	stats.TotalPixelCount = n

	return entities.IndexResult{
		Timestamp:     nir.AcquiredAt,
		Width:         nir.Width,
		Height:        nir.Height,
		Statistics:    stats,
		Zones:         zones,
		DerivedAlerts: deriveAlerts(stats, zones, th),
		Values:        values,
	}, nil
}

func checkShape(nir, red entities.BandRaster) error {
	if nir.Width < 0 || nir.Height < 0 || !nir.SameShape(red) {
		return fmt.Errorf("%w: nir=%dx%d red=%dx%d", model.ErrDimensionMismatch, nir.Width, nir.Height, red.Width, red.Height)
	}
	if len(nir.Values) != nir.Pixels() || len(red.Values) != red.Pixels() {
		return fmt.Errorf("%w: %dx%d grid with nir=%d red=%d samples",
			model.ErrDimensionMismatch, nir.Width, nir.Height, len(nir.Values), len(red.Values))
	}
	return nil
}

func scaleOf(b entities.BandRaster) float64 {
	if b.Scale > 0 {
		return b.Scale
	}
	return entities.DefaultReflectanceScale
}

// normalize maps a raw sample to [0,1]. Non-finite samples are nodata and stay NaN.
func normalize(raw, scale float64) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return math.NaN()
	}
	return math.Min(1, math.Max(0, raw/scale))
}

// pixelIndex is (nir-red)/(nir+red); a zero denominator yields 0.
// Invalid pixels come back as NaN.
func pixelIndex(nir, red float64) float64 {
	d := nir + red
	if d == 0 {
		return 0
	}
	v := (nir - red) / d
	if !valid(v) {
		return math.NaN()
	}
	return v
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -1 && v <= 1
}

// summarize computes statistics and the zone histogram over valid pixels only.
func summarize(values []float64, th Thresholds) (entities.Statistics, entities.ZoneHistogram) {
	var (
		stats  entities.Statistics
		sum    float64
		counts = make(map[entities.Zone]int, len(entities.Zones))
	)
	stats.Min = math.Inf(1)
	stats.Max = math.Inf(-1)

	for _, v := range values {
		if !valid(v) {
			continue
		}
		stats.ValidPixelCount++
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
		counts[th.Classify(v)]++
	}

	if stats.ValidPixelCount == 0 {
		return entities.Statistics{}, entities.ZoneHistogram{}
	}

	nv := float64(stats.ValidPixelCount)
	stats.Mean = sum / nv

	var sq float64
	for _, v := range values {
		if valid(v) {
			d := v - stats.Mean
			sq += d * d
		}
	}
	stats.Std = math.Sqrt(sq / nv)

	zones := make(entities.ZoneHistogram, len(entities.Zones))
	for _, z := range entities.Zones {
		c := counts[z]
		zones[z] = entities.ZoneBucket{Count: c, Percentage: float64(c) / nv * 100}
	}
	return stats, zones
}
