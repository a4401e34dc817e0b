package alerting

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/messages"
)

// AlertRepository persists alerts and assigns their ids.
type AlertRepository interface {
	SaveAlerts(ctx context.Context, farmID string, alerts []entities.Alert) ([]entities.Alert, error)
}

// NotificationDispatcher attempts delivery of one message. Failures are only logged.
type NotificationDispatcher interface {
	Send(ctx context.Context, recipient string, msg messages.NotificationMessage) error
}

type Config struct {
	Logger *log.Logger
	Now    func() time.Time
	// TopAlerts is how many alerts an urgent message lists (default 3).
	TopAlerts int
}

// Aggregator merges index and vision alerts, persists them and decides notifications.
type Aggregator struct {
	repo       AlertRepository
	dispatcher NotificationDispatcher
	logger     *log.Logger
	now        func() time.Time
	topAlerts  int
}

func NewAggregator(repo AlertRepository, dispatcher NotificationDispatcher, cfg Config) *Aggregator {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TopAlerts <= 0 {
		cfg.TopAlerts = 3
	}
	return &Aggregator{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     cfg.Logger,
		now:        cfg.Now,
		topAlerts:  cfg.TopAlerts,
	}
}

// Result is the outcome of Combine for one farm.
type Result struct {
	Alerts       []entities.Alert
	Persisted    bool
	Notification *messages.NotificationMessage
	Notified     bool
}

// Merge maps, deduplicates and ranks alerts without side effects.
// Emission order is index-derived alerts first, then vision findings; the first
// occurrence of a (farm, type, severity) key wins.
func (a *Aggregator) Merge(farm entities.Farm, idx entities.IndexResult, findings []entities.VisionFinding) []entities.Alert {
	createdAt := a.now().UTC()

	emitted := make([]entities.Alert, 0, len(idx.DerivedAlerts)+len(findings))
	for _, d := range idx.DerivedAlerts {
		emitted = append(emitted, fromDerived(farm.ID, d, createdAt))
	}
	for _, f := range findings {
		emitted = append(emitted, fromFinding(farm.ID, f, createdAt))
	}

	seen := make(map[entities.AlertKey]struct{}, len(emitted))
	out := make([]entities.Alert, 0, len(emitted))
	for _, al := range emitted {
		k := al.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, al)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

// Combine merges alerts, persists them and dispatches the farm notification.
// Persistence and dispatch failures are logged and never abort the caller.
func (a *Aggregator) Combine(ctx context.Context, farm entities.Farm, idx entities.IndexResult, findings []entities.VisionFinding) Result {
	res := Result{Alerts: a.Merge(farm, idx, findings)}

	if len(res.Alerts) > 0 && a.repo != nil {
		saved, err := a.repo.SaveAlerts(ctx, farm.ID, res.Alerts)
		if err != nil {
			a.logger.Printf("alerting: WARN: alerts for farm %s not saved, continuing: %v", farm.ID, err)
		} else {
			res.Alerts = saved
			res.Persisted = true
		}
	}

	msg, ok := BuildNotification(farm, res.Alerts, a.topAlerts, a.now())
	if !ok {
		return res
	}
	res.Notification = &msg
	if a.dispatcher == nil || strings.TrimSpace(farm.Contact) == "" {
		a.logger.Printf("alerting: no contact for farm %s, %s message not sent", farm.ID, msg.Kind)
		return res
	}
	if err := a.dispatcher.Send(ctx, farm.Contact, msg); err != nil {
		a.logger.Printf("alerting: dispatch %s message for farm %s failed: %v", msg.Kind, farm.ID, err)
		return res
	}
	res.Notified = true
	return res
}

func fromDerived(farmID string, d entities.DerivedAlert, at time.Time) entities.Alert {
	return entities.Alert{
		FarmID:         farmID,
		Type:           d.Type,
		Severity:       d.Severity,
		Title:          d.Title,
		Description:    d.Description,
		Recommendation: d.Recommendation,
		Source:         entities.SourceIndex,
		Metadata:       d.Metadata,
		CreatedAt:      at,
	}
}

const genericVisionType = "vision_finding"

func fromFinding(farmID string, f entities.VisionFinding, at time.Time) entities.Alert {
	typ := normalizeType(f.Type)
	sev := MapVisionSeverity(f.Severity)
	title := "AI finding: " + strings.ReplaceAll(typ, "_", " ")
	// healthy_vegetation is info only; a graver tag keeps its severity under the generic type
	if typ == entities.AlertHealthyVegetation && sev != entities.SeverityInfo {
		typ = genericVisionType
	}
	rec := "Review the finding during the next field visit."
	if sev == entities.SeverityHigh {
		rec = "Verify on site as soon as possible."
	}
	return entities.Alert{
		FarmID:         farmID,
		Type:           typ,
		Severity:       sev,
		Title:          title,
		Description:    f.Description,
		Recommendation: rec,
		Source:         entities.SourceVision,
		Metadata: map[string]any{
			"confidence":      f.Confidence,
			"vision_severity": string(f.Severity),
		},
		CreatedAt: at,
	}
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return genericVisionType
	}
	return strings.Join(strings.Fields(t), "_")
}
