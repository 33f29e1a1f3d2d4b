package process

// Status is the outcome a hosted plugin reports after a Process call,
// telling the engine whether the block needs another call.
type Status int32

const (
	// StatusError means the plugin hit an unrecoverable error and has
	// silenced its outputs. The engine may deactivate and reactivate it.
	StatusError Status = iota

	// StatusContinue means the block rendered normally and the plugin
	// should be called again for the next one.
	StatusContinue

	// StatusContinueIfNotQuiet means the block rendered but the plugin
	// may sleep once its audio input goes quiet (typical of effects
	// with no signal of their own).
	StatusContinueIfNotQuiet

	// StatusTail means the plugin is still producing a decaying tail
	// (reverb, delay) with no new input; keep calling it until it
	// reports StatusSleep or StatusContinue.
	StatusTail

	// StatusSleep means the plugin is done until new events or
	// parameter changes arrive; the engine may stop scheduling it.
	StatusSleep
)

// Aliases kept for the wrapper files, which were written against the
// exported ProcessXxx spelling.
const (
	ProcessError              = StatusError
	ProcessContinue           = StatusContinue
	ProcessContinueIfNotQuiet = StatusContinueIfNotQuiet
	ProcessTail               = StatusTail
	ProcessSleep              = StatusSleep
)

// IsValidProcessStatus reports whether status is one of the defined codes.
func IsValidProcessStatus(status Status) bool {
	return status >= StatusError && status <= StatusSleep
}

func (s Status) String() string {
	switch s {
	case StatusError:
		return "ERROR"
	case StatusContinue:
		return "CONTINUE"
	case StatusContinueIfNotQuiet:
		return "CONTINUE_IF_NOT_QUIET"
	case StatusTail:
		return "TAIL"
	case StatusSleep:
		return "SLEEP"
	default:
		return "UNKNOWN"
	}
}

// ProcessStatusString is kept for callers that format a bare status
// value rather than holding a Status.
func ProcessStatusString(status Status) string {
	return status.String()
}

// ProcessResult is what a hosted plugin's Process method returns: the
// status, plus an optional Go error for the engine's own diagnostics
// (not part of any plugin ABI).
type ProcessResult struct {
	Status Status
	Error  error
}

// NewProcessResult wraps a bare status with no error.
func NewProcessResult(status Status) ProcessResult {
	return ProcessResult{Status: status}
}

// NewProcessError wraps an error as a StatusError result.
func NewProcessError(err error) ProcessResult {
	return ProcessResult{Status: StatusError, Error: err}
}

// IsError reports whether the result is an error.
func (r ProcessResult) IsError() bool {
	return r.Status == StatusError
}

// ShouldContinue reports whether the engine should keep scheduling the
// plugin for the next block.
func (r ProcessResult) ShouldContinue() bool {
	return r.Status == StatusContinue || r.Status == StatusContinueIfNotQuiet
}

// ShouldSleep reports whether the plugin asked to stop being scheduled.
func (r ProcessResult) ShouldSleep() bool {
	return r.Status == StatusSleep
}

// IsTail reports whether the plugin is rendering a decay tail.
func (r ProcessResult) IsTail() bool {
	return r.Status == StatusTail
}

func (r ProcessResult) String() string {
	if r.Error != nil {
		return r.Status.String() + ": " + r.Error.Error()
	}
	return r.Status.String()
}
