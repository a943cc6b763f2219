package controller

// Phase is the coarse state of the controller. Failure causes are kept
// apart, in Controller.LastError.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseServerUnavailable
	PhaseReady
	PhaseLoadFailed
	PhaseBusy
	PhaseExchangeFailed
	PhaseExchangeSucceeded
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseServerUnavailable:
		return "server_unavailable"
	case PhaseReady:
		return "ready"
	case PhaseLoadFailed:
		return "load_failed"
	case PhaseBusy:
		return "busy"
	case PhaseExchangeFailed:
		return "exchange_failed"
	case PhaseExchangeSucceeded:
		return "exchange_succeeded"
	default:
		return "unknown"
	}
}
