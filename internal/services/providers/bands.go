package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
)

type bandsRequest struct {
	FarmID     string         `json:"farm_id"`
	Geometry   map[string]any `json:"geometry"`
	MaxAgeDays int            `json:"max_age_days"`
	Bands      []string       `json:"bands"`
}

// BandClient fetches NIR/Red rasters from the imagery service.
type BandClient struct {
	up *upstream
}

func NewBandClient(baseURL string, timeout time.Duration, breaker BreakerConfig) *BandClient {
	return &BandClient{up: newUpstream("band-provider", baseURL, timeout, NewBreaker("band-provider", breaker))}
}

// GetBands returns the latest acquisition not older than maxAgeDays.
// No such image (404/204) yields model.ErrDataUnavailable.
func (c *BandClient) GetBands(ctx context.Context, farm entities.Farm, maxAgeDays int) (entities.BandSet, error) {
	in := bandsRequest{
		FarmID:     farm.ID,
		Geometry:   farm.Geometry,
		MaxAgeDays: maxAgeDays,
		Bands:      []string{"B08", "B04"},
	}
	var out entities.BandSet
	err := c.up.postJSON(ctx, "/bands", in, &out, func(code int) error {
		if code == http.StatusNotFound || code == http.StatusNoContent {
			return model.ErrDataUnavailable
		}
		return nil
	})
	if err != nil {
		return entities.BandSet{}, err
	}
	if out.NIR.AcquiredAt.IsZero() {
		out.NIR.AcquiredAt = out.SensingDate
	}
	if out.Red.AcquiredAt.IsZero() {
		out.Red.AcquiredAt = out.SensingDate
	}
	return out, nil
}

func (c *BandClient) BreakerState() string { return c.up.State() }
