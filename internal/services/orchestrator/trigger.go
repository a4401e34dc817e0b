package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/messages"
	"github.com/LeonardoBeccarini/cropwatch/pkg/rabbitmq"
)

// CommandHandler turns broker RunCommand messages into Trigger/Stop calls.
// Runs it starts are parented by ctx.
func CommandHandler(ctx context.Context, o *Orchestrator) rabbitmq.Handler {
	return func(topic string, message mqtt.Message) error {
		var cmd messages.RunCommand
		if err := json.Unmarshal(message.Payload(), &cmd); err != nil {
			return fmt.Errorf("run command on %s: %w", topic, err)
		}
		switch strings.ToLower(strings.TrimSpace(cmd.Action)) {
		case "run":
			o.logger.Printf("orchestrator: run requested over %s (%s)", topic, cmd.Reason)
			if err := o.Trigger(ctx); err != nil && !errors.Is(err, model.ErrRunInProgress) {
				return err
			}
			return nil
		case "stop":
			o.logger.Printf("orchestrator: stop requested over %s (%s)", topic, cmd.Reason)
			o.Stop()
			return nil
		default:
			return fmt.Errorf("run command on %s: unknown action %q", topic, cmd.Action)
		}
	}
}
