// Package payload renders the JSON body of a turboSMTP send-mail request.
//
// Values are interpolated between quotes exactly as given. Quotes and
// backslashes inside a value are not escaped, and custom_headers is spliced
// in as a raw JSON value. Nothing is validated.
package payload

import "strings"

// field indexes the slots of a Builder in render order.
type field int

const (
	authUser field = iota
	authPass
	from
	to
	subject
	cc
	bcc
	content
	htmlContent
	customHeaders
	rawMime
	fieldCount
)

// key is the JSON key of each field.
var key = [fieldCount]string{
	authUser:      "authuser",
	authPass:      "authpass",
	from:          "from",
	to:            "to",
	subject:       "subject",
	cc:            "cc",
	bcc:           "bcc",
	content:       "content",
	htmlContent:   "html_content",
	customHeaders: "custom_headers",
	rawMime:       "mime_raw",
}

// required fields are always rendered, unset ones as the text null.
const requiredCount = int(to) + 1

// Builder accumulates the fields of a send-mail request. Setters return a
// modified copy, so a Builder value never changes once it has been handed
// out and is safe to share between goroutines.
type Builder struct {
	values [fieldCount]*string
}

// New returns a Builder with no fields set.
func New() Builder {
	return Builder{}
}

func (b Builder) with(f field, v string) Builder {
	b.values[f] = &v
	return b
}

// AuthUser sets the account email address.
func (b Builder) AuthUser(v string) Builder { return b.with(authUser, v) }

// AuthPass sets the account password.
func (b Builder) AuthPass(v string) Builder { return b.with(authPass, v) }

// From sets the sender address.
func (b Builder) From(v string) Builder { return b.with(from, v) }

// To sets the comma-separated recipient list.
func (b Builder) To(v string) Builder { return b.with(to, v) }

// Subject sets the subject line.
func (b Builder) Subject(v string) Builder { return b.with(subject, v) }

// Cc sets the comma-separated copy list.
func (b Builder) Cc(v string) Builder { return b.with(cc, v) }

// Bcc sets the comma-separated hidden copy list.
func (b Builder) Bcc(v string) Builder { return b.with(bcc, v) }

// Content sets the plain text body.
func (b Builder) Content(v string) Builder { return b.with(content, v) }

// HTMLContent sets the HTML body.
func (b Builder) HTMLContent(v string) Builder { return b.with(htmlContent, v) }

// CustomHeaders sets additional headers. v must already be a JSON object
// literal; it is embedded without quoting.
func (b Builder) CustomHeaders(v string) Builder { return b.with(customHeaders, v) }

// RawMime sets a complete MIME message that the API uses in place of
// content and html_content.
func (b Builder) RawMime(v string) Builder { return b.with(rawMime, v) }

// Build renders the configured fields as a JSON object.
func (b Builder) Build() string {
	var sb strings.Builder
	sb.WriteByte('{')

	for f := field(0); f < fieldCount; f++ {
		v := b.values[f]
		if v == nil && int(f) >= requiredCount {
			continue
		}
		if f > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(key[f])
		sb.WriteString(`":`)

		val := "null"
		if v != nil {
			val = *v
		}
		if f == customHeaders {
			sb.WriteString(val)
			continue
		}
		sb.WriteByte('"')
		sb.WriteString(val)
		sb.WriteByte('"')
	}

	sb.WriteByte('}')
	return sb.String()
}
