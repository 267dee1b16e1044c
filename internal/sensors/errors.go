package sensors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NetworkError means no HTTP response was received: connection refused,
// timeout, DNS failure or a cancelled request.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("execute request %s: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError means the backend answered with a non-2xx status.
type StatusError struct {
	Path   string
	Status int
	// Detail is the server-supplied message, empty when the body had none.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// MalformedError means a 2xx response could not be decoded or lacked a
// required field.
type MalformedError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode response %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode response %s: %s", e.Path, e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

const maxDetailLen = 300

// parseDetail extracts FastAPI's {"detail": ...} message. Validation failures
// carry a list of objects; their "msg" fields are joined.
func parseDetail(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if m := strings.TrimSpace(item.Msg); m != "" {
					msgs = append(msgs, m)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "<") {
		return ""
	}
	if len(text) > maxDetailLen {
		text = text[:maxDetailLen]
	}
	return text
}

// ValidationError means a caller-side precondition failed before any request
// was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
