package turbosmtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/turbosmtp-lite/internal/payload"
)

const (
	// DefaultDashboardURL is the base URL of the dashboard API.
	DefaultDashboardURL = "https://dashboard.serversmtp.com/api"

	// DefaultSendURL is the send-mail endpoint, served from a separate host.
	DefaultSendURL = "https://api.turbo-smtp.com/api/mail/send"

	// TransportErrorCode is the errorCode reported when a request never
	// produced an HTTP status.
	TransportErrorCode = -1
)

// Client performs authenticated calls against the turboSMTP API. It holds
// no per-call state and is safe for concurrent use.
type Client struct {
	authUser     string
	authPass     string
	dashboardURL string
	sendURL      string
	httpClient   *http.Client
	logger       *slog.Logger
}

// New creates a Client for the given account credentials.
func New(authUser, authPass string, opts ...Option) *Client {
	c := &Client{
		authUser:     authUser,
		authPass:     authPass,
		dashboardURL: DefaultDashboardURL,
		sendURL:      DefaultSendURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendParams holds the caller-supplied fields of a send-mail request.
// Empty optional fields are left out of the request body.
type SendParams struct {
	From string // Sender address (required)
	To   string // Comma-separated recipients (required)

	Subject       string
	Cc            string // Comma-separated copy list
	Bcc           string // Comma-separated hidden copy list
	Content       string // Plain text body
	HTMLContent   string
	CustomHeaders string // JSON object literal, embedded as-is
	RawMime       string // Full MIME message, replaces Content and HTMLContent
}

// SendMail sends an email through the send-mail endpoint.
func (c *Client) SendMail(ctx context.Context, p SendParams) string {
	return c.authorized(ctx, "send_mail", http.MethodPost, c.sendURL, func() string {
		return p.Payload(c.authUser, c.authPass)
	})
}

// AccountInfo returns the account details.
func (c *Client) AccountInfo(ctx context.Context) string {
	return c.authorized(ctx, "account_info", http.MethodGet, c.dashboardURL+"/user/info", nil)
}

// ActivePlans returns the plans active on the account.
func (c *Client) ActivePlans(ctx context.Context) string {
	return c.authorized(ctx, "active_plans", http.MethodGet, c.dashboardURL+"/plans", nil)
}

// SubAccounts returns a summary of the account's sub-accounts.
func (c *Client) SubAccounts(ctx context.Context) string {
	return c.authorized(ctx, "sub_accounts", http.MethodGet, c.dashboardURL+"/useraccounts/summary", nil)
}

// LastEmailSentStatistics returns the feed of the most recent sent emails,
// at most count records.
func (c *Client) LastEmailSentStatistics(ctx context.Context, count string) string {
	return c.authorized(ctx, "email_stats", http.MethodGet,
		c.dashboardURL+"/stats/email-feed-last/"+url.PathEscape(count), nil)
}

// Payload renders the send-mail request body for p with the given account
// credentials.
func (p SendParams) Payload(authUser, authPass string) string {
	b := payload.New().
		AuthUser(authUser).
		AuthPass(authPass).
		From(p.From).
		To(p.To)

	optional := []struct {
		value string
		set   func(payload.Builder, string) payload.Builder
	}{
		{p.Subject, payload.Builder.Subject},
		{p.Cc, payload.Builder.Cc},
		{p.Bcc, payload.Builder.Bcc},
		{p.Content, payload.Builder.Content},
		{p.HTMLContent, payload.Builder.HTMLContent},
		{p.CustomHeaders, payload.Builder.CustomHeaders},
		{p.RawMime, payload.Builder.RawMime},
	}
	for _, o := range optional {
		if o.value != "" {
			b = o.set(b, o.value)
		}
	}

	return b.Build()
}

// authorized runs the authenticate-then-call flow shared by every
// operation. body, when non-nil, renders the JSON request body after
// authentication succeeded.
func (c *Client) authorized(ctx context.Context, op, method, target string, body func() string) string {
	log := c.logger.With("op", op, "request_id", uuid.NewString())

	sess, authErr := c.authenticate(ctx, log)
	if authErr != nil {
		log.Debug("authentication failed", "error_code", authErr.Code)
		return errorResult(authFailurePrefix+authErr.Message, authErr.Code)
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = strings.NewReader(body())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to create request: %v", err), TransportErrorCode)
	}
	req.Header.Set("Authorization", sess.token())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	status, respBody, err := c.send(req)
	if err != nil {
		log.Debug("request failed", "error", err)
		return errorResult(err.Error(), TransportErrorCode)
	}

	log.Debug("request completed", "status", status)

	if status != http.StatusOK {
		return errorResult(respBody, status)
	}
	return respBody
}

// send performs a single HTTP round trip and returns the status and body.
// Transport errors are stripped of the request URL, which may carry
// credentials.
func (c *Client) send(req *http.Request) (int, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return 0, "", fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
		}
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, string(data), nil
}
