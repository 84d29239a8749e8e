// Package parser reads RFC 5322 messages (.eml files) into the email model
// so they can be sent through the API.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/shineum/turbosmtp-lite/internal/email"
)

// ErrEmptyMessage is returned when there is nothing to parse.
var ErrEmptyMessage = errors.New("empty message")

// Parse parses a raw message. Address headers become plain address lists,
// the first inline text/plain and text/html parts become the bodies, and
// X- headers are kept as custom headers. Attachments are skipped because
// the send endpoint has no field for them.
func Parse(raw []byte) (*email.Email, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyMessage
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	result := &email.Email{}

	from, err := addresses(mr.Header, "From")
	if err != nil {
		return nil, err
	}
	if len(from) > 0 {
		result.From = from[0]
	}
	if result.To, err = addresses(mr.Header, "To"); err != nil {
		return nil, err
	}
	if result.Cc, err = addresses(mr.Header, "Cc"); err != nil {
		return nil, err
	}
	if result.Bcc, err = addresses(mr.Header, "Bcc"); err != nil {
		return nil, err
	}

	result.Subject, err = mr.Header.Subject()
	if err != nil {
		return nil, fmt.Errorf("failed to decode subject: %w", err)
	}

	fields := mr.Header.Fields()
	for fields.Next() {
		key := fields.Key()
		if !strings.HasPrefix(strings.ToUpper(key), "X-") {
			continue
		}
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		result.Headers[key] = fields.Value()
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s part: %w", contentType, err)
			}

			switch {
			case strings.HasPrefix(contentType, "text/html"):
				if result.HTMLBody == "" {
					result.HTMLBody = string(body)
				}
			case contentType == "" || strings.HasPrefix(contentType, "text/plain"):
				if result.TextBody == "" {
					result.TextBody = string(body)
				}
			default:
				slog.Warn("skipping unsupported inline part",
					"content_type", contentType,
				)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			slog.Warn("skipping attachment",
				"filename", filename,
			)
		}
	}

	return result, nil
}

func addresses(h mail.Header, key string) ([]string, error) {
	list, err := h.AddressList(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s header: %w", key, err)
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
