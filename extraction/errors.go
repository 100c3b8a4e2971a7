package extraction

import "errors"

// ErrPollTimeout marks a poll loop that exhausted its time budget without
// the job reaching a terminal status.
var ErrPollTimeout = errors.New("extraction polling exceeded time budget")

// AuthError wraps a failed client-credentials token exchange. The caller
// treats it as a service-configuration fault: no record is written.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "token exchange failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// ServiceError is a failure reported by (or while talking to) the
// extraction API after authentication succeeded.
type ServiceError struct {
	Reason string
}

func (e *ServiceError) Error() string { return e.Reason }
