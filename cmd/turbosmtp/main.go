// Package main is the entry point for the turboSMTP command line client.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	turbosmtp "github.com/shineum/turbosmtp-lite"
	"github.com/shineum/turbosmtp-lite/internal/config"
	"github.com/shineum/turbosmtp-lite/internal/content"
	"github.com/shineum/turbosmtp-lite/internal/credential"
	"github.com/shineum/turbosmtp-lite/internal/email"
	"github.com/shineum/turbosmtp-lite/internal/parser"
	"github.com/shineum/turbosmtp-lite/internal/provider"
	"github.com/shineum/turbosmtp-lite/internal/provider/stdout"
	"github.com/shineum/turbosmtp-lite/internal/provider/turbo"
)

const usage = `usage: turbosmtp [-config file] <command> [flags]

commands:
  send           send an email
  info           show account details
  plans          show active plans
  subaccounts    show sub-accounts summary
  stats <count>  show the last <count> sent emails
  overview       show info, plans and sub-accounts together
  login          store the account password in the system keyring
  logout         remove the stored password

login and logout require the keyring to be enabled (the default).
`

var (
	errNoPassword      = errors.New("no password configured: set TURBOSMTP_PASSWORD or run 'turbosmtp login'")
	errKeyringDisabled = errors.New("keyring is disabled: set credentials.keyring or TURBOSMTP_KEYRING=true")
)

// openStore opens the credential store. Tests replace it with an in-memory
// keyring.
var openStore = credential.Open

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("turbosmtp", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() { fmt.Fprint(errOut, usage) }
	configPath := fs.String("config", "", "path to YAML configuration file (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(errOut, "failed to load configuration: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "invalid configuration: %v\n", err)
		return 1
	}

	setupLogger(errOut, cfg.Logging)

	a := &app{cfg: cfg, stdin: stdin, stdout: out, stderr: errOut}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "send":
		err = a.send(ctx, cmdArgs)
	case "info":
		err = a.query(ctx, (*turbosmtp.Client).AccountInfo)
	case "plans":
		err = a.query(ctx, (*turbosmtp.Client).ActivePlans)
	case "subaccounts":
		err = a.query(ctx, (*turbosmtp.Client).SubAccounts)
	case "stats":
		err = a.stats(ctx, cmdArgs)
	case "overview":
		err = a.overview(ctx)
	case "login":
		err = a.login()
	case "logout":
		err = a.logout()
	default:
		fmt.Fprintf(errOut, "unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}

	if err != nil {
		slog.Error("command failed", "command", cmd, "error", err)
		return 1
	}
	return 0
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with the configured format
// and level. Output goes to w so results on stdout stay machine readable.
func setupLogger(w io.Writer, cfg config.LoggingConfig) {
	var logLevel slog.Level

	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// password returns the configured password, falling back to the keyring.
func (a *app) password() (string, error) {
	if a.cfg.TurboSMTP.Password != "" {
		return a.cfg.TurboSMTP.Password, nil
	}
	store, err := a.keyring()
	if errors.Is(err, errKeyringDisabled) {
		return "", errNoPassword
	}
	if err != nil {
		return "", err
	}
	pw, err := store.Get(a.cfg.TurboSMTP.Username)
	if errors.Is(err, credential.ErrNotFound) {
		return "", errNoPassword
	}
	return pw, err
}

func (a *app) client() (*turbosmtp.Client, error) {
	pw, err := a.password()
	if err != nil {
		return nil, err
	}
	return turbosmtp.New(a.cfg.TurboSMTP.Username, pw,
		turbosmtp.WithDashboardURL(a.cfg.TurboSMTP.DashboardURL),
		turbosmtp.WithSendURL(a.cfg.TurboSMTP.SendURL),
		turbosmtp.WithLogger(slog.Default()),
	), nil
}

// print writes result and reports it as an error when it has the error
// shape.
func (a *app) print(result string) error {
	fmt.Fprintln(a.stdout, result)
	return turbosmtp.ParseResult(result)
}

func (a *app) query(ctx context.Context, op func(*turbosmtp.Client, context.Context) string) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	return a.print(op(c, ctx))
}

func (a *app) stats(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("stats takes exactly one argument: <count>")
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	return a.print(c.LastEmailSentStatistics(ctx, args[0]))
}

// overview fetches account info, plans and sub-accounts concurrently. The
// first error result cancels the remaining calls.
func (a *app) overview(ctx context.Context) error {
	c, err := a.client()
	if err != nil {
		return err
	}

	sections := []struct {
		name string
		op   func(*turbosmtp.Client, context.Context) string
	}{
		{"info", (*turbosmtp.Client).AccountInfo},
		{"plans", (*turbosmtp.Client).ActivePlans},
		{"subaccounts", (*turbosmtp.Client).SubAccounts},
	}
	results := make([]string, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sections {
		g.Go(func() error {
			results[i] = s.op(c, gctx)
			if err := turbosmtp.ParseResult(results[i]); err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			return nil
		})
	}
	err = g.Wait()

	for i, s := range sections {
		fmt.Fprintf(a.stdout, "%s: %s\n", s.name, results[i])
	}
	return err
}

func (a *app) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var (
		from     = fs.String("from", "", "sender address")
		to       = fs.String("to", "", "comma-separated recipients")
		cc       = fs.String("cc", "", "comma-separated copy recipients")
		bcc      = fs.String("bcc", "", "comma-separated hidden copy recipients")
		subject  = fs.String("subject", "", "subject line")
		text     = fs.String("text", "", "plain text body")
		html     = fs.String("html", "", "HTML body")
		markdown = fs.String("markdown", "", "Markdown file rendered into the HTML body")
		sanitize = fs.Bool("sanitize", false, "strip unsafe markup from the HTML body")
		headers  = fs.String("headers", "", `custom headers as a JSON object sent as-is, e.g. {"X-Tag":"a"}`)
		eml      = fs.String("eml", "", "RFC 5322 message file to send; flags override its fields")
		mime     = fs.String("mime", "", "file holding a complete MIME message sent as-is")
		dryRun   = fs.Bool("dry-run", false, "print the request body instead of sending")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg := &email.Email{}
	if *eml != "" {
		data, err := os.ReadFile(*eml)
		if err != nil {
			return fmt.Errorf("failed to read message file: %w", err)
		}
		if msg, err = parser.Parse(data); err != nil {
			return err
		}
	}

	overrideString(&msg.From, *from)
	overrideString(&msg.Subject, *subject)
	overrideString(&msg.TextBody, *text)
	overrideString(&msg.HTMLBody, *html)
	overrideList(&msg.To, *to)
	overrideList(&msg.Cc, *cc)
	overrideList(&msg.Bcc, *bcc)

	if *markdown != "" {
		src, err := os.ReadFile(*markdown)
		if err != nil {
			return fmt.Errorf("failed to read markdown file: %w", err)
		}
		if msg.HTMLBody, err = content.Markdown(src); err != nil {
			return err
		}
	}
	if *sanitize && msg.HTMLBody != "" {
		msg.HTMLBody = content.SanitizeHTML(msg.HTMLBody)
	}

	if *headers != "" {
		if err := a.applyHeaders(msg, *headers, *eml != ""); err != nil {
			return err
		}
	}

	if *mime != "" {
		data, err := os.ReadFile(*mime)
		if err != nil {
			return fmt.Errorf("failed to read MIME file: %w", err)
		}
		msg.Raw = data
	}

	if !msg.HasBody() {
		return errors.New("message has no body: use -text, -html, -markdown, -eml or -mime")
	}

	prov, err := a.selectProvider(*dryRun)
	if err != nil {
		return err
	}
	slog.Info("sending message", "provider", prov.Name(), "recipients", len(msg.To))

	result, err := prov.Send(ctx, msg)
	if result != "" {
		fmt.Fprintln(a.stdout, result)
	}
	return err
}

// selectProvider chooses the delivery backend for the send command.
func (a *app) selectProvider(dryRun bool) (provider.Provider, error) {
	if dryRun {
		return stdout.NewWithWriter(a.stdout, a.cfg.TurboSMTP.Username), nil
	}
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return turbo.New(c), nil
}

// applyHeaders sets the -headers value on msg. Without a message file the
// object is sent verbatim; otherwise its members are merged over the
// file's X- headers.
func (a *app) applyHeaders(msg *email.Email, headers string, merge bool) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal([]byte(headers), &members); err != nil || members == nil {
		return errors.New("invalid -headers: must be a JSON object")
	}

	if !merge {
		msg.CustomHeaders = headers
		return nil
	}

	if msg.Headers == nil {
		msg.Headers = make(map[string]string, len(members))
	}
	for k, raw := range members {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			v = string(raw)
		}
		msg.Headers[k] = v
	}
	return nil
}

// keyring opens the credential store unless it is disabled in the
// configuration.
func (a *app) keyring() (*credential.Store, error) {
	if !a.cfg.Credentials.Keyring {
		return nil, errKeyringDisabled
	}
	return openStore()
}

func (a *app) login() error {
	store, err := a.keyring()
	if err != nil {
		return err
	}

	pw, err := a.readPassword()
	if err != nil {
		return err
	}
	if pw == "" {
		return errors.New("empty password")
	}

	if err := store.Set(a.cfg.TurboSMTP.Username, pw); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "stored password for %s\n", a.cfg.TurboSMTP.Username)
	return nil
}

func (a *app) logout() error {
	store, err := a.keyring()
	if err != nil {
		return err
	}
	if err := store.Delete(a.cfg.TurboSMTP.Username); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "removed password for %s\n", a.cfg.TurboSMTP.Username)
	return nil
}

// readPassword prompts without echo on a terminal and otherwise reads the
// first line of stdin.
func (a *app) readPassword() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(a.stderr, "Password for %s: ", a.cfg.TurboSMTP.Username)
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideList(dst *[]string, v string) {
	if v == "" {
		return
	}
	var list []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	*dst = list
}
