// Package email defines the message model handed to delivery providers.
package email

// Email is a message ready to be delivered.
type Email struct {
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string

	// Headers are extra headers sent alongside the message.
	Headers map[string]string

	// CustomHeaders, when set, is a JSON object literal sent verbatim in
	// place of Headers.
	CustomHeaders string

	// Raw, when set, is a complete MIME message that providers deliver
	// instead of the body fields.
	Raw []byte
}

// HasBody reports whether the message carries any content to deliver.
func (e *Email) HasBody() bool {
	return e.TextBody != "" || e.HTMLBody != "" || len(e.Raw) > 0
}
