package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ErrorCategory classifies a transport failure for user-facing messaging.
// The widget does not retry on its own; retry is a user-triggered action,
// and the category only drives what the user is told.
type ErrorCategory string

const (
	ErrorNetwork   ErrorCategory = "network"
	ErrorTimeout   ErrorCategory = "timeout"
	ErrorRateLimit ErrorCategory = "ratelimit"
	ErrorServer    ErrorCategory = "server"
	ErrorAuth      ErrorCategory = "auth"
	ErrorClient    ErrorCategory = "client"
	ErrorUnknown   ErrorCategory = "unknown"
)

// SendError is a classified transport failure.
type SendError struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
}

func (e *SendError) Error() string {
	if e.Message != "" {
		return string(e.Category) + ": " + e.Message
	}
	return string(e.Category)
}

// ClassifyStatus maps a non-2xx HTTP status to an error category.
func ClassifyStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuth
	case status >= 500:
		return ErrorServer
	case status >= 400:
		return ErrorClient
	default:
		return ErrorUnknown
	}
}

// classifyErr maps a request-level error (no HTTP response) to a category.
func classifyErr(err error) ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTimeout
		}
		return ErrorNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorNetwork
	}
	return ErrorUnknown
}
