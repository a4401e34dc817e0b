package entities

import "time"

// Zone is a pixel classification bucket derived from index thresholds.
type Zone string

const (
	ZoneWater              Zone = "water"
	ZoneBareSoil           Zone = "bare_soil"
	ZoneSparseVegetation   Zone = "sparse_vegetation"
	ZoneModerateVegetation Zone = "moderate_vegetation"
	ZoneDenseVegetation    Zone = "dense_vegetation"
)

// Zones lists every bucket in display order (lowest index first).
var Zones = []Zone{ZoneWater, ZoneBareSoil, ZoneSparseVegetation, ZoneModerateVegetation, ZoneDenseVegetation}

// Statistics are computed over valid pixels only.
type Statistics struct {
	Mean            float64 `json:"mean"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Std             float64 `json:"std"`
	ValidPixelCount int     `json:"valid_pixel_count"`
	TotalPixelCount int     `json:"total_pixel_count"`
}

type ZoneBucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ZoneHistogram holds one bucket per Zone.
type ZoneHistogram map[Zone]ZoneBucket

// Percent returns the share of valid pixels in zone z (0 when absent).
func (h ZoneHistogram) Percent(z Zone) float64 { return h[z].Percentage }

// DerivedAlert is emitted by the index rule table before aggregation.
type DerivedAlert struct {
	Type           string         `json:"type"`
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IndexResult is created once per analysis and never mutated afterwards.
type IndexResult struct {
	Timestamp     time.Time      `json:"timestamp"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	Statistics    Statistics     `json:"statistics"`
	Zones         ZoneHistogram  `json:"zones"`
	DerivedAlerts []DerivedAlert `json:"derived_alerts"`
	Values        []float64      `json:"-"` // per-pixel index, NaN where invalid
}
