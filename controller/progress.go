package controller

import "time"

// ProgressReporter receives transcript lines and phase changes as they happen.
type ProgressReporter interface {
	// Send sends a progress update
	Send(event Event) error
}

// NoOpProgressReporter implements ProgressReporter with no-op operations
type NoOpProgressReporter struct{}

// Send does nothing
func (r *NoOpProgressReporter) Send(event Event) error {
	return nil
}

type EventKind int

const (
	EventPhase EventKind = iota
	EventLine
	EventFilePrimed
)

// Event is one progress update. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	SessionID int
	Phase     Phase
	Line      Line
	Path      string
	Err       error
	At        time.Time
}

// Helper functions for creating progress events
func NewPhaseChange(phase Phase, err error) Event {
	return Event{Kind: EventPhase, Phase: phase, Err: err, At: time.Now()}
}

func NewLine(sessionID int, line Line) Event {
	return Event{Kind: EventLine, SessionID: sessionID, Line: line, At: time.Now()}
}

// NewFilePrimed reports one file of a priming run; err is nil when it was sent.
func NewFilePrimed(sessionID int, path string, err error) Event {
	return Event{Kind: EventFilePrimed, SessionID: sessionID, Path: path, Err: err, At: time.Now()}
}
