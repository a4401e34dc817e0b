package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/messages"
)

// SummaryMessage is the administrator notification for a finished run.
func SummaryMessage(r entities.RunReport) messages.NotificationMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s on %s\n", r.ID, r.Date.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Farms: %d (succeeded %d, failed %d, skipped %d)\n", r.TotalFarms, r.Succeeded, r.Failed, r.Skipped)
	fmt.Fprintf(&b, "Alerts generated: %d\n", r.AlertsGenerated)
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", r.SuccessRatePercent)
	fmt.Fprintf(&b, "Duration: %dms\n", r.ExecutionTimeMs)
	if r.Canceled {
		b.WriteString("Run was stopped before all batches completed.\n")
	}
	subject := fmt.Sprintf("Daily analysis: %d/%d farms succeeded", r.Succeeded, r.TotalFarms-r.Skipped)
	return messages.NotificationMessage{
		ID:        uuid.NewString(),
		Kind:      messages.NotificationSummary,
		Subject:   subject,
		Body:      b.String(),
		Timestamp: r.Date,
	}
}

// FailureMessage is the administrator notification for an aborted run.
func FailureMessage(runID string, err error, at time.Time) messages.NotificationMessage {
	return messages.NotificationMessage{
		ID:        uuid.NewString(),
		Kind:      messages.NotificationFailure,
		Subject:   "Daily analysis failed",
		Body:      fmt.Sprintf("Run %s aborted: %v\n", runID, err),
		Timestamp: at,
	}
}

func (o *Orchestrator) notifySummary(ctx context.Context, r entities.RunReport) {
	o.notifyAdmins(ctx, SummaryMessage(r))
}

func (o *Orchestrator) notifyFailure(ctx context.Context, runID string, err error) {
	o.notifyAdmins(ctx, FailureMessage(runID, err, o.cfg.Now().UTC()))
}

// notifyAdmins sends msg to every admin contact. Failures are logged only.
func (o *Orchestrator) notifyAdmins(ctx context.Context, msg messages.NotificationMessage) {
	if !o.cfg.AdminNotifications || o.deps.Admin == nil {
		return
	}
	for _, to := range o.cfg.AdminContacts {
		to = strings.TrimSpace(to)
		if to == "" {
			continue
		}
		if err := o.call(ctx, func(ctx context.Context) error {
			return o.deps.Admin.Send(ctx, to, msg)
		}); err != nil {
			o.logger.Printf("orchestrator: admin %s notification to %s failed: %v", msg.Kind, to, err)
		}
	}
}
