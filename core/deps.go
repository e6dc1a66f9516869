package core

import (
	"pkt.systems/glimmer/schema"
	"pkt.systems/pslog"
)

// SessionDeps captures the collaborators of a session. Surface and Metrics
// are required; the rest are optional.
type SessionDeps struct {
	// ID names the session in logs and recordings; one is generated when empty.
	ID           schema.SessionID
	Surface      Surface
	Metrics      MetricsProvider
	Sink         EventSink
	Images       ImageLoader
	SpecialInput SpecialInput
	Recorder     Recorder
	Debug        DebugConsole
	Clock        Clock
	Logger       pslog.Logger
}
