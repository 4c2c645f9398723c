package memstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("memstore: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("memstore: %d %s", e.Status, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	var msg string
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = firstNonEmpty(payload.Message, payload.Error, payload.Details)
	} else {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return &APIError{Status: status, Message: msg}
}

// StatusOf returns the HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	return 0, false
}

// FriendlyMessage maps err to a short, actionable message for the user.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	status, ok := StatusOf(err)
	switch {
	case !ok:
		return err.Error()
	case status == http.StatusBadRequest:
		return "Bad request: your API key or request format may be invalid. Check your key at https://console.supermemory.ai"
	case status == http.StatusUnauthorized:
		return "Authentication failed: your API key may be expired or revoked. Run `memcapture login` or check https://console.supermemory.ai"
	case status == http.StatusForbidden:
		return "Permission denied: this feature may require a different Supermemory plan. Check https://supermemory.ai/pricing"
	case status == http.StatusTooManyRequests:
		return "Rate limited: too many requests. Will retry next session."
	case status >= http.StatusInternalServerError:
		return "Supermemory service is temporarily unavailable. Will retry next session."
	default:
		return err.Error()
	}
}

// IsRetryable reports whether the request may succeed later: rate limiting,
// server errors and transport failures that never got a status.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	status, ok := StatusOf(err)
	if !ok {
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// IsBenign reports whether err is expected and not worth surfacing: a 404
// means the container has no data yet, and a missing status means a
// transient network failure.
func IsBenign(err error) bool {
	if err == nil {
		return false
	}
	status, ok := StatusOf(err)
	return !ok || status == http.StatusNotFound
}
