package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dymgr/internal/services"
)

const maxErrorBody = 64 << 10

// HTTPError is returned for any backend response with status >= 400.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	// Detail is the backend's `detail` message, empty when the body had none.
	Detail string
	Body   string
}

func (e *HTTPError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Body
	}
	if msg == "" {
		return fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap exposes the status class as a services marker.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return services.ErrUnauthorized
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusUnprocessableEntity:
		return services.ErrValidation
	default:
		return nil
	}
}

// DetailOf returns the backend `detail` message carried by err, if any.
func DetailOf(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Detail
	}
	return ""
}

// extractDetail pulls the human readable message out of a FastAPI style error
// body. `detail` may be a string, a list of validation issues, or an object.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var issues []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &issues); err == nil {
		for _, issue := range issues {
			if msg := strings.TrimSpace(issue.Msg); msg != "" {
				return msg
			}
		}
		return ""
	}

	if string(envelope.Detail) == "null" {
		return ""
	}
	return strings.TrimSpace(string(envelope.Detail))
}
