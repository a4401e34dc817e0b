package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
	"github.com/LeonardoBeccarini/cropwatch/internal/model/messages"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	out  []published
	fail error
}

func (f *fakePublisher) PublishTo(topic string, _ byte, payload []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.out = append(f.out, published{topic: topic, payload: payload})
	return nil
}

func (f *fakePublisher) Close() {}

func testMessage() messages.NotificationMessage {
	return messages.NotificationMessage{
		ID:        "n-1",
		Kind:      messages.NotificationUrgent,
		FarmID:    "f1",
		Subject:   "North field needs attention",
		Body:      "- [HIGH] Vegetation stress",
		Timestamp: time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC),
	}
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func TestSendPublishesOnRecipientTopic(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Config{Logger: quietLogger()})

	if err := d.Send(context.Background(), "owner@farm.it", testMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(pub.out) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.out))
	}
	if pub.out[0].topic != "notify/owner@farm.it" {
		t.Fatalf("unexpected topic %q", pub.out[0].topic)
	}
	var got messages.NotificationMessage
	if err := json.Unmarshal(pub.out[0].payload, &got); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if got.Subject != testMessage().Subject || got.Kind != messages.NotificationUrgent {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestSendSuppressesDuplicate(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, Config{Logger: quietLogger()})
	ctx := context.Background()

	_ = d.Send(ctx, "a", testMessage())
	_ = d.Send(ctx, "a", testMessage())
	_ = d.Send(ctx, "b", testMessage())

	if len(pub.out) != 2 {
		t.Fatalf("expected duplicate to one recipient suppressed, got %d publishes", len(pub.out))
	}
}

func TestSendFailureIsExternalAndRetryable(t *testing.T) {
	pub := &fakePublisher{fail: errors.New("broker down")}
	d := New(pub, Config{Logger: quietLogger()})
	ctx := context.Background()

	err := d.Send(ctx, "a", testMessage())
	if !model.IsExternal(err) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}

	pub.fail = nil
	if err := d.Send(ctx, "a", testMessage()); err != nil {
		t.Fatalf("send after failure: %v", err)
	}
	if len(pub.out) != 1 {
		t.Fatalf("failed send must not be remembered as delivered")
	}
}

func TestTopicSanitizesWildcards(t *testing.T) {
	d := New(&fakePublisher{}, Config{TopicTemplate: "alerts/{recipient}/out"})
	if got := d.Topic("a/b+#"); got != "alerts/a_b__/out" {
		t.Fatalf("unexpected topic %q", got)
	}
}

func TestEmptyRecipientRejected(t *testing.T) {
	d := New(&fakePublisher{}, Config{Logger: quietLogger()})
	if err := d.Send(context.Background(), " ", testMessage()); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
}
