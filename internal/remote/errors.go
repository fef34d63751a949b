package remote

import "errors"

// Error taxonomy for outbound remote calls. Callers classify with errors.Is.
var (
	// ErrAuthExpired means the silent refresh failed; the credential is dead
	// and the user must re-authenticate. Never retried further.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrTransient covers network failures and 5xx responses. Retried with
	// backoff up to the configured attempt bound before surfacing.
	ErrTransient = errors.New("transient remote failure")

	// ErrNotFoundOrGone means the remote resource no longer exists
	// (e.g. an album deleted behind our back). Never retried.
	ErrNotFoundOrGone = errors.New("remote resource missing")
)
