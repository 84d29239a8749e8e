// Package stdout implements a dry-run Provider that prints the send-mail
// request body instead of sending it.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shineum/turbosmtp-lite/internal/email"
	"github.com/shineum/turbosmtp-lite/internal/provider/turbo"
)

// maskedPassword replaces the account password in printed payloads.
const maskedPassword = "********"

// dryRunResult is returned in place of an API response.
const dryRunResult = `{"message":"dry run"}`

// Provider writes the request body that would be sent for each message.
type Provider struct {
	writer   io.Writer
	authUser string
}

// New creates a stdout Provider that writes to os.Stdout.
func New(authUser string) *Provider {
	return NewWithWriter(os.Stdout, authUser)
}

// NewWithWriter creates a stdout Provider that writes to the given writer.
func NewWithWriter(w io.Writer, authUser string) *Provider {
	return &Provider{writer: w, authUser: authUser}
}

// Send prints the payload for msg with the password masked.
func (p *Provider) Send(_ context.Context, msg *email.Email) (string, error) {
	params, err := turbo.Params(msg)
	if err != nil {
		return "", err
	}

	if _, err := fmt.Fprintln(p.writer, params.Payload(p.authUser, maskedPassword)); err != nil {
		return "", fmt.Errorf("failed to write payload: %w", err)
	}

	return dryRunResult, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}
