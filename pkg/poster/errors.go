package poster

import "fmt"

// ErrorKind classifies a posting failure for the orchestrator and the run
// report. The kind names the stage family that failed without carrying any
// credential content.
type ErrorKind string

const (
	// KindAuthentication covers missing credentials and login
	// post-conditions that were never met.
	KindAuthentication ErrorKind = "authentication"

	// KindContent means the minimum content requirement could not be
	// satisfied (no text and no usable media).
	KindContent ErrorKind = "content"

	// KindPosting covers compose, submit and verify step failures.
	KindPosting ErrorKind = "posting"

	// KindCredential covers credential store read/write faults.
	KindCredential ErrorKind = "credential"

	// KindNoContent means no ready job existed for the platform.
	KindNoContent ErrorKind = "no_content"
)

// Error is the terminal failure of one posting attempt. The poster converts
// every fault, including unexpected browser errors, into this type; raw
// platform exceptions never cross the poster boundary.
type Error struct {
	Kind    ErrorKind
	Stage   State
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure at %s: %s", e.Kind, e.Stage, e.Message)
}

func newErrorf(kind ErrorKind, stage State, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// asPosterError coerces any error to *Error, wrapping foreign errors as
// posting failures at the given stage.
func asPosterError(err error, stage State) *Error {
	if perr, ok := err.(*Error); ok {
		return perr
	}
	return &Error{Kind: KindPosting, Stage: stage, Message: err.Error()}
}
