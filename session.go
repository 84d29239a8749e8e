package turbosmtp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// session is the decoded body of a successful authorize call. It lives for
// a single operation and is never reused.
type session map[string]any

// token returns the auth token sent as the Authorization header value.
func (s session) token() string {
	tok, _ := s["auth"].(string)
	return tok
}

var errNoAuthToken = errors.New("authorize response missing auth token")

// authenticate performs the first round trip. On failure it returns the
// error object that ends the operation.
func (c *Client) authenticate(ctx context.Context, log *slog.Logger) (session, *ResultError) {
	target := c.dashboardURL + "/authorize/" + url.PathEscape(c.authUser) + "/" + url.PathEscape(c.authPass)

	log.Debug("authenticating",
		"url", c.dashboardURL+"/authorize/"+url.PathEscape(c.authUser)+"/***",
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &ResultError{Message: "failed to create authorize request", Code: TransportErrorCode}
	}

	status, body, err := c.send(req)
	if err != nil {
		return nil, &ResultError{Message: err.Error(), Code: TransportErrorCode}
	}
	if status != http.StatusOK {
		return nil, &ResultError{Message: body, Code: status}
	}

	return parseSession(body, status)
}

// parseSession decodes an authorize response body. A body that carries an
// "error" key is a failure even with a 200 status.
func parseSession(body string, status int) (session, *ResultError) {
	var s session
	if err := json.Unmarshal([]byte(body), &s); err != nil || s == nil {
		msg := "authorize response is not a JSON object"
		if err != nil {
			msg = fmt.Sprintf("failed to parse authorize response: %v", err)
		}
		return nil, &ResultError{Message: msg, Code: status}
	}

	if v, ok := s["error"]; ok {
		code := status
		if n, ok := s["errorCode"].(float64); ok {
			code = int(n)
		}
		return nil, &ResultError{Message: fmt.Sprint(v), Code: code}
	}

	if s.token() == "" {
		return nil, &ResultError{Message: errNoAuthToken.Error(), Code: status}
	}

	return s, nil
}
