package turbosmtp

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// authFailurePrefix starts the message of every result produced by a
// failed authentication.
const authFailurePrefix = "authCookie is null/error. "

// Sentinel errors matched by ResultError through errors.Is.
var (
	// ErrAuthFailed matches results of a failed authorize round trip.
	ErrAuthFailed = errors.New("turbosmtp: authentication failed")

	// ErrTransport matches results of a request that got no HTTP response.
	ErrTransport = errors.New("turbosmtp: transport error")

	// ErrUnauthorized matches results carrying a 401 status.
	ErrUnauthorized = errors.New("turbosmtp: unauthorized")
)

// ResultError is the decoded form of a normalized error result.
type ResultError struct {
	Message string
	Code    int
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("turbosmtp error %d: %s", e.Code, e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *ResultError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return strings.HasPrefix(e.Message, authFailurePrefix)
	case ErrTransport:
		return e.Code == TransportErrorCode
	case ErrUnauthorized:
		return e.Code == 401
	}
	return false
}

// errorResult renders the normalized error string. message is interpolated
// without escaping, matching the provider's error bodies byte for byte.
func errorResult(message string, code int) string {
	return fmt.Sprintf(`{"error": "%s", "errorCode": %d}`, message, code)
}

// rawErrorResult matches an error result whose message broke the JSON
// syntax, for example a provider body containing quotes.
var rawErrorResult = regexp.MustCompile(`(?s)^\{"error": "(.*)", "errorCode": (-?\d+)\}$`)

// ParseResult reports whether result is a normalized error. It returns a
// *ResultError for error results and nil for success bodies.
func ParseResult(result string) error {
	var shape struct {
		Error     *json.RawMessage `json:"error"`
		ErrorCode *int             `json:"errorCode"`
	}
	if err := json.Unmarshal([]byte(result), &shape); err == nil {
		if shape.Error == nil || shape.ErrorCode == nil {
			return nil
		}
		var msg string
		if err := json.Unmarshal(*shape.Error, &msg); err != nil {
			msg = string(*shape.Error)
		}
		return &ResultError{Message: msg, Code: *shape.ErrorCode}
	}

	m := rawErrorResult.FindStringSubmatch(result)
	if m == nil {
		return nil
	}
	code, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	return &ResultError{Message: m[1], Code: code}
}
