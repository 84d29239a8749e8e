// Package turbo implements a Provider that delivers through the turboSMTP
// send-mail endpoint.
package turbo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	turbosmtp "github.com/shineum/turbosmtp-lite"
	"github.com/shineum/turbosmtp-lite/internal/email"
)

// Mailer is the part of the turboSMTP client the provider needs.
type Mailer interface {
	SendMail(ctx context.Context, p turbosmtp.SendParams) string
}

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("email must have at least one recipient")

// Provider sends messages through a turboSMTP client.
type Provider struct {
	client Mailer
}

// New creates a Provider backed by client.
func New(client Mailer) *Provider {
	return &Provider{client: client}
}

// Send delivers msg and returns the API response body. A normalized error
// result is returned as a *turbosmtp.ResultError alongside the raw string.
func (p *Provider) Send(ctx context.Context, msg *email.Email) (string, error) {
	params, err := Params(msg)
	if err != nil {
		return "", err
	}

	result := p.client.SendMail(ctx, params)
	if err := turbosmtp.ParseResult(result); err != nil {
		return result, fmt.Errorf("send mail: %w", err)
	}
	return result, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "turbosmtp"
}

// Params converts msg into send-mail parameters. Address lists are joined
// with commas and every string value is escaped for embedding in a JSON
// string literal, since the payload builder writes values as-is. Headers are
// encoded as a JSON object unless msg.CustomHeaders supplies one verbatim.
func Params(msg *email.Email) (turbosmtp.SendParams, error) {
	if len(msg.To) == 0 {
		return turbosmtp.SendParams{}, ErrNoRecipient
	}

	params := turbosmtp.SendParams{
		From:          escape(msg.From),
		To:            escape(strings.Join(msg.To, ",")),
		Cc:            escape(strings.Join(msg.Cc, ",")),
		Bcc:           escape(strings.Join(msg.Bcc, ",")),
		Subject:       escape(msg.Subject),
		Content:       escape(msg.TextBody),
		HTMLContent:   escape(msg.HTMLBody),
		RawMime:       escape(string(msg.Raw)),
		CustomHeaders: msg.CustomHeaders,
	}

	if params.CustomHeaders == "" && len(msg.Headers) > 0 {
		headers, err := marshal(msg.Headers)
		if err != nil {
			return turbosmtp.SendParams{}, fmt.Errorf("failed to encode custom headers: %w", err)
		}
		params.CustomHeaders = headers
	}

	return params, nil
}

// escape returns s as the inside of a JSON string literal. HTML characters
// are left alone so bodies stay readable.
func escape(s string) string {
	if s == "" {
		return ""
	}
	quoted, err := marshal(s)
	if err != nil {
		// strings always encode
		return s
	}
	return quoted[1 : len(quoted)-1]
}

func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
