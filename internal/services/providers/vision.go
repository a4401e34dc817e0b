package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

type visionRequest struct {
	ImagePNG   string               `json:"image_png_base64"`
	Farm       entities.FarmContext `json:"farm"`
	Statistics entities.Statistics  `json:"statistics"`
	Zones      map[string]float64   `json:"zone_percentages"`
}

// VisionClient asks the AI vision service for structured findings.
type VisionClient struct {
	up *upstream
}

func NewVisionClient(baseURL string, timeout time.Duration, breaker BreakerConfig) *VisionClient {
	return &VisionClient{up: newUpstream("vision-provider", baseURL, timeout, NewBreaker("vision-provider", breaker))}
}

// Analyze sends the rendered index image plus context. Findings without a
// severity tag make the whole answer invalid.
func (c *VisionClient) Analyze(ctx context.Context, image []byte, farm entities.FarmContext, idx entities.IndexResult) (entities.VisionResult, error) {
	zones := make(map[string]float64, len(entities.Zones))
	for _, z := range entities.Zones {
		zones[string(z)] = idx.Zones.Percent(z)
	}
	in := visionRequest{
		ImagePNG:   base64.StdEncoding.EncodeToString(image),
		Farm:       farm,
		Statistics: idx.Statistics,
		Zones:      zones,
	}

	var out entities.VisionResult
	if err := c.up.postJSON(ctx, "/analyze", in, &out, nil); err != nil {
		return entities.VisionResult{}, err
	}
	if err := validateVision(out); err != nil {
		return entities.VisionResult{}, &model.ExternalServiceError{Service: "vision-provider", Err: err}
	}
	return out, nil
}

func (c *VisionClient) BreakerState() string { return c.up.State() }

func validateVision(v entities.VisionResult) error {
	for i, f := range v.Findings {
		if strings.TrimSpace(string(f.Severity)) == "" {
			return fmt.Errorf("finding %d (%q) has no severity tag", i, f.Type)
		}
		if f.Confidence < 0 || f.Confidence > 100 {
			return fmt.Errorf("finding %d (%q) confidence %.1f out of range", i, f.Type, f.Confidence)
		}
	}
	return nil
}
