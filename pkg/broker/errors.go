package broker

import "github.com/queue-vision/queue-vision/pkg/errors"

// Error codes for broker operations.
const (
	CodeInvalidArgument   = "BROKER_INVALID_ARGUMENT"
	CodeNotConnected      = "BROKER_NOT_CONNECTED"
	CodeNotFound          = "BROKER_NOT_FOUND"
	CodeDecode            = "BROKER_DECODE"
	CodeAlreadySubscribed = "BROKER_ALREADY_SUBSCRIBED"
	CodeCancelled         = "BROKER_CANCELLED"
	CodeTransport         = "BROKER_TRANSPORT"
	CodeInternal          = "BROKER_INTERNAL"
)

// ErrInvalidArgument reports a malformed endpoint, unknown status, or
// an offset/limit outside the accepted range.
func ErrInvalidArgument(msg string) *errors.AppError {
	return errors.New(CodeInvalidArgument, msg, nil)
}

// ErrNotConnected reports an operation invoked before Connect or after
// Disconnect.
func ErrNotConnected() *errors.AppError {
	return errors.New(CodeNotConnected, "adapter is not connected", nil)
}

// ErrNotFound reports that FetchJob could not locate a job in any
// status index, or that its record vanished after a positive probe.
func ErrNotFound(queue, id string) *errors.AppError {
	return errors.New(CodeNotFound, "job not found: "+queue+"/"+id, nil)
}

// ErrDecode reports that a structural field of a job record failed to
// parse.
func ErrDecode(msg string, cause error) *errors.AppError {
	return errors.New(CodeDecode, msg, cause)
}

// ErrAlreadySubscribed reports a second Subscribe while the single
// subscriber model already has an active listener set.
func ErrAlreadySubscribed() *errors.AppError {
	return errors.New(CodeAlreadySubscribed, "a subscription is already active", nil)
}

// ErrCancelled reports that the caller's context was done before the
// operation completed.
func ErrCancelled(cause error) *errors.AppError {
	return errors.New(CodeCancelled, "operation cancelled", cause)
}

// ErrTransport reports a broker I/O failure (connection, auth,
// protocol).
func ErrTransport(msg string, cause error) *errors.AppError {
	return errors.New(CodeTransport, msg, cause)
}

// ErrInternal reports an unexpected failure that doesn't map to any
// other code.
func ErrInternal(msg string, cause error) *errors.AppError {
	return errors.New(CodeInternal, msg, cause)
}
