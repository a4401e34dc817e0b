package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/messages"
	"github.com/LeonardoBeccarini/cropwatch/pkg/dedup"
	"github.com/LeonardoBeccarini/cropwatch/pkg/rabbitmq"
)

const DefaultTopicTemplate = "notify/{recipient}"

type Config struct {
	TopicTemplate string        // {recipient} is substituted
	QoS           byte          // default 1
	DedupTTL      time.Duration // default 10m
	Logger        *log.Logger
}

// Dispatcher publishes notifications on a per-recipient MQTT topic.
type Dispatcher struct {
	pub    rabbitmq.IPublisher
	tmpl   string
	qos    byte
	dedup  *dedup.Deduper
	logger *log.Logger
}

func New(pub rabbitmq.IPublisher, cfg Config) *Dispatcher {
	if cfg.TopicTemplate == "" {
		cfg.TopicTemplate = DefaultTopicTemplate
	}
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Dispatcher{
		pub:    pub,
		tmpl:   cfg.TopicTemplate,
		qos:    cfg.QoS,
		dedup:  dedup.New(cfg.DedupTTL, 10000),
		logger: cfg.Logger,
	}
}

// Topic returns the topic a recipient's messages are published on.
func (d *Dispatcher) Topic(recipient string) string {
	return strings.ReplaceAll(d.tmpl, "{recipient}", topicSafe(recipient))
}

// Send publishes msg once. A repeat of the same (recipient, subject, body)
// inside the dedup window is dropped and reported as delivered.
func (d *Dispatcher) Send(ctx context.Context, recipient string, msg messages.NotificationMessage) error {
	if strings.TrimSpace(recipient) == "" {
		return &model.ExternalServiceError{Service: "notifier", Err: errors.New("empty recipient")}
	}
	if err := ctx.Err(); err != nil {
		return &model.ExternalServiceError{Service: "notifier", Err: err}
	}

	key := dedup.Key(recipient, string(msg.Kind), msg.Subject, msg.Body)
	if !d.dedup.ShouldProcess(key) {
		d.logger.Printf("notifier: duplicate %s message to %s suppressed", msg.Kind, recipient)
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		d.dedup.Forget(key)
		return fmt.Errorf("notifier: marshal: %w", err)
	}

	topic := d.Topic(recipient)
	if err := d.pub.PublishTo(topic, d.qos, payload); err != nil {
		d.dedup.Forget(key)
		return &model.ExternalServiceError{Service: "notifier", Err: err}
	}
	d.logger.Printf("notifier: %s message published on %s", msg.Kind, topic)
	return nil
}

// topicSafe strips MQTT wildcard and level characters from a recipient.
func topicSafe(s string) string {
	r := strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")
	return r.Replace(strings.TrimSpace(s))
}
