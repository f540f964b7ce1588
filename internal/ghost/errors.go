package ghost

import "fmt"

// AuthError means the admin key was rejected. Polling must stop and the
// credential layer has to be asked for a new key.
type AuthError struct {
	Endpoint string
	Status   int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ghost: authentication rejected on %s (status %d)", e.Endpoint, e.Status)
}

type NotFoundError struct {
	Endpoint string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ghost: %s not found", e.Endpoint)
}

// RateLimitedError is retryable, but only on the next scheduled interval.
type RateLimitedError struct {
	Endpoint string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("ghost: rate limited on %s", e.Endpoint)
}

// TransientError covers network faults and 5xx responses.
type TransientError struct {
	Endpoint string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("ghost: transient failure on %s: %v", e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError keeps a payload excerpt for diagnostics. Treated as
// transient by callers.
type MalformedResponseError struct {
	Endpoint string
	Payload  string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("ghost: malformed response from %s: %v (payload: %.120s)", e.Endpoint, e.Err, e.Payload)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
