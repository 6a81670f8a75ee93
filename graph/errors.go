package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Graph API error code for an invalid or expired access token.
const codeInvalidToken = 190

// APIError is a Graph API error body, or a non-2xx status without one.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	TraceID    string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("graph api error %d (%s): %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("graph api status %d: %s", e.StatusCode, e.Message)
}

// UpstreamMessage is the message shown to the user.
func (e *APIError) UpstreamMessage() string {
	return e.Message
}

// IsAuth reports whether the error is about the access token itself.
func (e *APIError) IsAuth() bool {
	return e.Code == codeInvalidToken || e.Type == "OAuthException" ||
		e.StatusCode == http.StatusUnauthorized
}

func decodeAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		envelope.Error.StatusCode = status
		return envelope.Error
	}
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}
