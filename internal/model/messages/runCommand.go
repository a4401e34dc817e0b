package messages

// RunCommand is consumed from the run command topic to drive the orchestrator.
type RunCommand struct {
	Action string `json:"action"` // "run" | "stop"
	Reason string `json:"reason,omitempty"`
}
