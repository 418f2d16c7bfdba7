package transfer

import "fmt"

// Status classifies the result of applying one transfer item.
type Status string

const (
	// StatusOK means the operation succeeded.
	StatusOK Status = "ok"
	// StatusRetryable means the operation failed transiently (rate limit,
	// temporary server error) and may be retried with backoff.
	StatusRetryable Status = "retryable"
	// StatusTerminal means the operation failed permanently; retrying
	// cannot help (conflict, bad request, unclassified error).
	StatusTerminal Status = "terminal"
)

// Outcome is the classified result of a single apply attempt.
type Outcome struct {
	Status Status
	Reason string
}

func OK() Outcome { return Outcome{Status: StatusOK} }

func Retryable(reason string) Outcome {
	return Outcome{Status: StatusRetryable, Reason: reason}
}

func Terminal(reason string) Outcome {
	return Outcome{Status: StatusTerminal, Reason: reason}
}

// Classify maps an HTTP-style status code to an outcome: 429 and 5xx are
// retryable, everything else terminal. 404 on an existence probe and 409
// on create are handled by the caller before classification; they carry
// meaning beyond the bare status code.
func Classify(httpStatus int, reason string) Outcome {
	switch {
	case httpStatus >= 200 && httpStatus < 300:
		return OK()
	case httpStatus == 429 || httpStatus >= 500:
		return Retryable(reason)
	default:
		return Terminal(reason)
	}
}

// Error carries the operation and resource key context of a failed item.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
