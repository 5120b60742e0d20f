package core

import "fmt"

var LoginFailed = fmt.Errorf("Failed to login to your account.")

// LoginShapeChanged means the login page no longer carries the markup the
// login flow anchors on, which usually means the source changed shape.
var LoginShapeChanged = fmt.Errorf("could not find the login form's authenticity token")

// SessionExpired is surfaced instead of being retried so the caller can
// refresh the session and re-issue the request exactly once.
var SessionExpired = fmt.Errorf("session is no longer valid")

// RateLimited is returned once throttling backoff attempts are exhausted.
var RateLimited = fmt.Errorf("the source is throttling requests")

// StatusError covers non-retryable http failures such as 404s.
type StatusError struct {
	Code int
	Url  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.Url)
}
