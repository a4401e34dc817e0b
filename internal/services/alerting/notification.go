package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/cropwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/messages"
)

// BuildNotification decides which message, if any, a farm gets.
// alerts must already be ranked (see Merge). Returns false when nothing is sent.
func BuildNotification(farm entities.Farm, alerts []entities.Alert, top int, now time.Time) (messages.NotificationMessage, bool) {
	if top <= 0 {
		top = 3
	}
	name := farmLabel(farm)

	if hasUrgent(alerts) {
		n := top
		if len(alerts) < n {
			n = len(alerts)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s needs attention:\n", name)
		for _, al := range alerts[:n] {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", strings.ToUpper(string(al.Severity)), al.Title, al.Description)
		}
		if rest := len(alerts) - n; rest > 0 {
			fmt.Fprintf(&b, "+%d more alert(s)\n", rest)
		}
		return messages.NotificationMessage{
			ID:        uuid.NewString(),
			Kind:      messages.NotificationUrgent,
			FarmID:    farm.ID,
			Subject:   fmt.Sprintf("Urgent: %s", name),
			Body:      b.String(),
			Timestamp: now.UTC(),
		}, true
	}

	for _, al := range alerts {
		if al.Type == entities.AlertHealthyVegetation {
			return messages.NotificationMessage{
				ID:        uuid.NewString(),
				Kind:      messages.NotificationPositive,
				FarmID:    farm.ID,
				Subject:   fmt.Sprintf("%s is in good shape", name),
				Body:      fmt.Sprintf("%s: %s", name, al.Description),
				Timestamp: now.UTC(),
			}, true
		}
	}
	return messages.NotificationMessage{}, false
}

func hasUrgent(alerts []entities.Alert) bool {
	for _, al := range alerts {
		if al.Severity == entities.SeverityHigh && al.Type != entities.AlertHealthyVegetation {
			return true
		}
	}
	return false
}

func farmLabel(f entities.Farm) string {
	label := f.ID
	if f.Name != "" {
		label = f.Name
	}
	if f.CropType != "" {
		label += " (" + f.CropType + ")"
	}
	return label
}
