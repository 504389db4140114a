package guard

import (
	"time"

	"github.com/victoralfred/mortem/internal/remove"
)

// Reason classifies a failed deletion attempt.
type Reason string

const (
	// ReasonNone indicates the attempt succeeded.
	ReasonNone Reason = Reason(remove.ReasonNone)

	// ReasonNotFound indicates no file exists at the path.
	ReasonNotFound Reason = Reason(remove.ReasonNotFound)

	// ReasonPermission indicates the filesystem denied the unlink.
	ReasonPermission Reason = Reason(remove.ReasonPermission)

	// ReasonInUse indicates the file is locked or busy.
	ReasonInUse Reason = Reason(remove.ReasonInUse)

	// ReasonOther covers all remaining IO errors.
	ReasonOther Reason = Reason(remove.ReasonOther)
)

// Outcome is the result of one deletion attempt. It is handed to the
// observer and then discarded; teardown never returns it.
type Outcome struct {
	// Removed is true when the directory entry is gone.
	Removed bool

	// Reason classifies the failure when Removed is false.
	Reason Reason

	// Err is the underlying filesystem error, nil on success.
	Err error

	// Attempt is the 1-based attempt number within this guard's
	// teardown.
	Attempt int

	// Duration is the wall clock time of the attempt.
	Duration time.Duration
}

// Failed reports whether the attempt left the file in place.
func (o Outcome) Failed() bool {
	return !o.Removed
}

// fromRemoveResult maps the internal attempt result into the public
// Outcome, stamping the attempt number.
func fromRemoveResult(res *remove.Result, attempt int) Outcome {
	return Outcome{
		Removed:  res.Removed,
		Reason:   Reason(res.Reason),
		Err:      res.Err,
		Attempt:  attempt,
		Duration: res.Duration,
	}
}
