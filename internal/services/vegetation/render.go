package vegetation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

// zoneColors is a fixed palette, one RGB triple per zone.
var zoneColors = map[entities.Zone]color.NRGBA{
	entities.ZoneWater:              {R: 0x1f, G: 0x4e, B: 0xb4, A: 0xff},
	entities.ZoneBareSoil:           {R: 0xa5, G: 0x6b, B: 0x3c, A: 0xff},
	entities.ZoneSparseVegetation:   {R: 0xe8, G: 0xd6, B: 0x4a, A: 0xff},
	entities.ZoneModerateVegetation: {R: 0x7c, G: 0xc1, B: 0x4b, A: 0xff},
	entities.ZoneDenseVegetation:    {R: 0x1b, G: 0x7a, B: 0x2e, A: 0xff},
}

// ZoneColor returns the palette entry for z.
func ZoneColor(z entities.Zone) color.NRGBA { return zoneColors[z] }

// RenderVisualization paints every pixel with its zone color and encodes a PNG.
// Invalid pixels are fully transparent. Display only, carries no alerts.
func RenderVisualization(values []float64, width, height int, th Thresholds) ([]byte, error) {
	if width <= 0 || height <= 0 || len(values) != width*height {
		return nil, fmt.Errorf("%w: %d values for %dx%d", model.ErrDimensionMismatch, len(values), width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, v := range values {
		if !valid(v) {
			continue // zero value is transparent
		}
		img.SetNRGBA(i%width, i/width, zoneColors[th.Classify(v)])
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
