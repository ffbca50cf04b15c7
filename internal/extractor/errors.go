package extractor

import (
	"errors"
	"strings"
)

// FailureKind classifies a non-zero extractor exit by its stderr text.
type FailureKind int

const (
	// FailureOther is any failure not matched below.
	FailureOther FailureKind = iota
	// FailureAgeRestricted means the video needs an authenticated session.
	FailureAgeRestricted
	// FailureCookieDecrypt means a Chromium cookie store could not be
	// decrypted (Windows DPAPI).
	FailureCookieDecrypt
	// FailureCookieDBCopy means the browser cookie database could not be
	// copied, usually because the browser holds it locked.
	FailureCookieDBCopy
)

// RunError is returned when the extractor exits non-zero. Stderr holds the
// collected diagnostic text (or the exit status when stderr was empty).
type RunError struct {
	Kind   FailureKind
	Stderr string
}

func (e *RunError) Error() string {
	return e.Stderr
}

// Classify maps extractor stderr text to a failure kind.
func Classify(stderr string) FailureKind {
	switch {
	case isAgeRestricted(stderr):
		return FailureAgeRestricted
	case isCookieDecrypt(stderr):
		return FailureCookieDecrypt
	case isCookieDBCopy(stderr):
		return FailureCookieDBCopy
	}
	return FailureOther
}

func isAgeRestricted(msg string) bool {
	return strings.Contains(msg, "Sign in to confirm your age") ||
		strings.Contains(msg, "age-restricted") ||
		strings.Contains(msg, "confirm your age") ||
		strings.Contains(msg, "inappropriate for some users") ||
		strings.Contains(msg, "--cookies-from-browser")
}

func isCookieDecrypt(msg string) bool {
	return strings.Contains(msg, "Failed to decrypt with DPAPI") ||
		strings.Contains(msg, "failed to decrypt") ||
		strings.Contains(msg, "DPAPI")
}

func isCookieDBCopy(msg string) bool {
	return strings.Contains(msg, "Could not copy Chrome cookie database") ||
		strings.Contains(msg, "could not copy") ||
		strings.Contains(msg, "cookie database")
}

// IsAgeRestricted reports whether err is an age-restriction failure, the only
// condition the coordinator retries with credentials.
func IsAgeRestricted(err error) bool {
	var runErr *RunError
	return errors.As(err, &runErr) && runErr.Kind == FailureAgeRestricted
}

// IsCookieFailure reports whether err is a cookie extraction failure that
// should advance the credential chain quietly.
func IsCookieFailure(err error) bool {
	var runErr *RunError
	if !errors.As(err, &runErr) {
		return false
	}
	return runErr.Kind == FailureCookieDecrypt || runErr.Kind == FailureCookieDBCopy
}
