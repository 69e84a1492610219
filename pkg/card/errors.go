package card

import (
	"fmt"
	"time"
)

// AuthenticationError wraps whatever went wrong during the unlock
// exchange, status word or transport loss alike.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// RefreshTimeoutError means the panel never reported a finished
// refresh within the allowed window.
type RefreshTimeoutError struct {
	Timeout time.Duration
}

func (e *RefreshTimeoutError) Error() string {
	return fmt.Sprintf("refresh not complete after %s", e.Timeout)
}
