package entities

import "time"

// DefaultReflectanceScale converts raw L2A digital numbers to reflectance.
const DefaultReflectanceScale = 10000.0

// BandRaster is a single spectral channel on a width x height grid, row-major.
type BandRaster struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Values     []float64 `json:"values"`
	Scale      float64   `json:"scale,omitempty"` // raw / Scale -> [0,1]; 0 means DefaultReflectanceScale
	AcquiredAt time.Time `json:"acquired_at"`
}

// SameShape reports whether two rasters can be combined pixel by pixel.
func (b BandRaster) SameShape(o BandRaster) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// Pixels is the declared number of pixels (width*height).
func (b BandRaster) Pixels() int { return b.Width * b.Height }

// BandSet is what a band provider returns for one farm.
type BandSet struct {
	NIR           BandRaster `json:"nir"`
	Red           BandRaster `json:"red"`
	SensingDate   time.Time  `json:"sensing_date"`
	CloudCoverage float64    `json:"cloud_coverage"` // percent
}
