// Package turbosmtp is a small client for the turboSMTP HTTP API.
//
// Every operation authenticates first, then calls its endpoint with the
// token from that response, and returns a string: either the provider's
// response body on success, or a normalized error object of the form
//
//	{"error": "<message>", "errorCode": <code>}
//
// Nothing is cached between calls; each call performs its own
// authentication round trip. Use [ParseResult] to turn a returned string
// into a Go error.
//
// Basic usage:
//
//	client := turbosmtp.New("user@example.com", "secret")
//
//	result := client.SendMail(ctx, turbosmtp.SendParams{
//	    From:    "user@example.com",
//	    To:      "alice@example.com,bob@example.com",
//	    Subject: "Hello",
//	    Content: "Plain text body",
//	})
//	if err := turbosmtp.ParseResult(result); err != nil {
//	    log.Fatal(err)
//	}
package turbosmtp
