package turbosmtp

import (
	"log/slog"
	"net/http"
	"strings"
)

// Option configures a Client.
type Option func(*Client)

// WithDashboardURL sets the base URL of the dashboard API used for
// authentication and account queries.
func WithDashboardURL(u string) Option {
	return func(c *Client) {
		c.dashboardURL = strings.TrimRight(u, "/")
	}
}

// WithSendURL sets the full URL of the send-mail endpoint.
func WithSendURL(u string) Option {
	return func(c *Client) {
		c.sendURL = u
	}
}

// WithHTTPClient sets the HTTP client used for both round trips.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger. Records are emitted at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
