package rabbitmq

import (
	"errors"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestDispatchCallsHandler(t *testing.T) {
	var got string
	c := NewConsumer(nil, "cmd/analysis/run", 1, nil)
	c.SetHandler(func(topic string, m mqtt.Message) error {
		got = string(m.Payload())
		return nil
	})
	c.Dispatch(fakeMessage{topic: "cmd/analysis/run", payload: []byte(`{"action":"run"}`)})
	if got != `{"action":"run"}` {
		t.Fatalf("handler not invoked, got %q", got)
	}
}

func TestDispatchSwallowsHandlerError(t *testing.T) {
	calls := 0
	c := NewConsumer(nil, "t", 0, func(string, mqtt.Message) error {
		calls++
		return errors.New("boom")
	})
	c.Dispatch(fakeMessage{topic: "t"})
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestDispatchWithoutHandler(t *testing.T) {
	c := NewConsumer(nil, "t", 0, nil)
	c.Dispatch(fakeMessage{topic: "t"})
}
