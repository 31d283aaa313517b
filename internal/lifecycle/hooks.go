package lifecycle

import "context"

// Phase orders shutdown hooks: every hook of a phase finishes before the next phase starts.
type Phase int

const (
	// PhaseDrain stops accepting work: HTTP server, poller, job worker, schedulers.
	PhaseDrain Phase = iota
	// PhaseClose releases shared resources once nothing uses them any more.
	PhaseClose
)

func (p Phase) String() string {
	switch p {
	case PhaseDrain:
		return "drain"
	case PhaseClose:
		return "close"
	default:
		return "unknown"
	}
}

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
