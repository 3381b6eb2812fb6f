package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error is the typed failure raised for non-2xx backend responses.
type Error struct {
	Status      int
	Message     string
	Detail      string
	Remediation string
}

func (e *Error) Error() string {
	if e.Detail != "" && e.Detail != e.Message {
		return fmt.Sprintf("api: %s: %s (http %d)", e.Message, e.Detail, e.Status)
	}
	return fmt.Sprintf("api: %s (http %d)", e.Message, e.Status)
}

// AsError extracts an *Error from err when one is present in the chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsCanceled reports whether err originates from context cancellation; such
// failures are intentional aborts and must not be surfaced to users.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// errorEnvelope mirrors the backend's standard error shape:
//
//	{ error?: { message?, detail?, remediation? }, message?, detail? }
type errorEnvelope struct {
	Error *struct {
		Message     string `json:"message"`
		Detail      string `json:"detail"`
		Remediation string `json:"remediation"`
	} `json:"error"`
	Message     string `json:"message"`
	Detail      string `json:"detail"`
	Remediation string `json:"remediation"`
}

// decodeError builds an *Error from a non-2xx response body. Message
// resolution order: error.message, error.detail, top-level message, top-level
// detail, then a generic fallback naming the status code. A body that is not
// valid JSON degrades to the fallback instead of failing.
func decodeError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if nested := envelope.Error; nested != nil {
			apiErr.Message = firstNonEmpty(nested.Message, nested.Detail)
			apiErr.Detail = strings.TrimSpace(nested.Detail)
			apiErr.Remediation = strings.TrimSpace(nested.Remediation)
		}
		if apiErr.Message == "" {
			apiErr.Message = firstNonEmpty(envelope.Message, envelope.Detail)
		}
		if apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(envelope.Detail)
		}
		if apiErr.Remediation == "" {
			apiErr.Remediation = strings.TrimSpace(envelope.Remediation)
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
