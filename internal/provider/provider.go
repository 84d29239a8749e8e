// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/turbosmtp-lite/internal/email"
)

// Provider is the interface that email delivery backends must implement.
type Provider interface {
	// Send delivers an email message through this provider. It returns the
	// backend's response body, and an error if the delivery failed.
	Send(ctx context.Context, msg *email.Email) (string, error)

	// Name returns the human-readable name of this provider.
	Name() string
}
