package printing

import "errors"

var (
	// ErrNotSupported means no printing backend exists for the host OS.
	ErrNotSupported = errors.New("printing not supported on this platform")

	// ErrSubmission means the spooler or print command rejected the job.
	ErrSubmission = errors.New("print submission failed")
)
