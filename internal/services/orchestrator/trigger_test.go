package orchestrator

import (
	"context"
	"testing"
)

type fakeMessage struct{ payload []byte }

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return "cmd/analysis/run" }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestCommandHandlerRun(t *testing.T) {
	h := newHarness(t, farmsN(2), nil)
	handle := CommandHandler(context.Background(), h.orch)

	if err := handle("cmd/analysis/run", fakeMessage{payload: []byte(`{"action":"run","reason":"manual"}`)}); err != nil {
		t.Fatalf("run command: %v", err)
	}
	waitFor(t, "triggered run", func() bool { return h.orch.State() == StateCompleted })
	if h.reports.count() != 1 {
		t.Fatalf("expected one report, got %d", h.reports.count())
	}
}

func TestCommandHandlerRejectsBadInput(t *testing.T) {
	h := newHarness(t, nil, nil)
	handle := CommandHandler(context.Background(), h.orch)

	if err := handle("t", fakeMessage{payload: []byte(`not json`)}); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := handle("t", fakeMessage{payload: []byte(`{"action":"reboot"}`)}); err == nil {
		t.Fatalf("expected unknown action error")
	}
	if err := handle("t", fakeMessage{payload: []byte(`{"action":"STOP"}`)}); err != nil {
		t.Fatalf("stop without a run must be harmless: %v", err)
	}
}
