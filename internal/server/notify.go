package server

import (
	"github.com/ironsheep/obstacle-mcp/internal/detection"
	"github.com/ironsheep/obstacle-mcp/internal/feedback"
)

// notifySink forwards detection output to the MCP client as
// notifications/message log entries carrying the rendered cue.
type notifySink struct {
	server *Server
}

type logMessageParams struct {
	Level  string       `json:"level"`
	Logger string       `json:"logger"`
	Data   feedback.Cue `json:"data"`
}

func (n *notifySink) OnDetectionStarted() {
	cue := feedback.BuildCue(feedback.EventStarted, detection.Verdict{}, n.server.prefs)
	n.server.notify("notifications/message", logMessageParams{Level: "info", Logger: Name, Data: cue})
}

func (n *notifySink) OnVerdict(v detection.Verdict) {
	cue := feedback.BuildCue(feedback.EventVerdict, v, n.server.prefs)
	n.server.notify("notifications/message", logMessageParams{Level: "warning", Logger: Name, Data: cue})
}
