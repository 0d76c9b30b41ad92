package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorCategory distinguishes provider failure modes so callers can
// react differently to auth problems, quota exhaustion, and timeouts.
type ErrorCategory string

const (
	ErrorAuth    ErrorCategory = "auth"
	ErrorQuota   ErrorCategory = "quota"
	ErrorTimeout ErrorCategory = "timeout"
	ErrorOther   ErrorCategory = "other"
)

// CategorizedError wraps a provider error with its failure category.
type CategorizedError struct {
	Category ErrorCategory
	Err      error
}

func (e *CategorizedError) Error() string {
	return fmt.Sprintf("llm: %s error: %v", e.Category, e.Err)
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Wrap attaches a category to a provider error. Already-categorized
// errors pass through unchanged.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return err
	}
	return &CategorizedError{Category: Categorize(err), Err: err}
}

// CategoryOf extracts the category from an error, defaulting to other.
func CategoryOf(err error) ErrorCategory {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return Categorize(err)
}

// Categorize maps a raw provider error to a failure category using the
// error chain and, as a last resort, the message text. Providers do not
// share a structured error shape, so string matching stays here in one
// place.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return ErrorOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status code: 401"),
		strings.Contains(msg, "status code: 403"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "api key"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "authentication"):
		return ErrorAuth
	case strings.Contains(msg, "status code: 429"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "throttl"),
		strings.Contains(msg, "too many requests"):
		return ErrorQuota
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return ErrorTimeout
	default:
		return ErrorOther
	}
}
