package controller

// Phase is the sync lifecycle position of the controller.
type Phase int

const (
	Idle Phase = iota
	Loading
	PollChecking
	SilentRefreshing
	Error
	Offline
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case PollChecking:
		return "checking"
	case SilentRefreshing:
		return "refreshing"
	case Error:
		return "error"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Busy reports whether a fetch or check is running.
func (p Phase) Busy() bool {
	return p == Loading || p == PollChecking || p == SilentRefreshing
}
