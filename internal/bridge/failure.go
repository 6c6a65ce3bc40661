package bridge

// FailureKind classifies the fatal conditions reported to the top-level
// supervisor. None of them are recoverable; the supervisor's only response
// is to terminate the whole process.
type FailureKind int

const (
	// FailureTranscoderExited reports a transcoder process that is no longer
	// running. Any exit, clean or not, counts: the only expected lifetime is
	// until the whole server goes down.
	FailureTranscoderExited FailureKind = iota
	// FailureSupervision reports that waiting on the transcoder process
	// failed, leaving its state unknowable.
	FailureSupervision
	// FailureStalled reports a transcoder that is running but produced no
	// new fragments for a full grace period.
	FailureStalled
	// FailureHealthcheck reports that the segment directory could not be
	// inspected.
	FailureHealthcheck
)

// String returns the operator-facing diagnostic for the condition.
func (k FailureKind) String() string {
	switch k {
	case FailureTranscoderExited:
		return "transcoder terminated unexpectedly"
	case FailureSupervision:
		return "cannot supervise transcoder process"
	case FailureStalled:
		return "transcoder stalled, no new fragments within the grace period"
	case FailureHealthcheck:
		return "segment directory healthcheck failed"
	default:
		return "unknown failure"
	}
}

// Failure is one unrecoverable condition. Components report it and stop
// doing their own work; process termination belongs to the supervisor.
type Failure struct {
	Kind FailureKind
	Err  error // underlying cause, may be nil
}

// report delivers f without blocking. Failures after the first are dropped.
func report(failures chan<- Failure, f Failure) {
	select {
	case failures <- f:
	default:
	}
}
