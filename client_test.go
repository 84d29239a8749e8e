package turbosmtp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves both the dashboard and the send-mail endpoints.
type fakeAPI struct {
	authStatus int
	authBody   string
	opStatus   int
	opBody     string

	authCalls atomic.Int32
	opCalls   atomic.Int32

	mu          sync.Mutex
	lastPath    string
	lastMethod  string
	lastAuth    string
	lastType    string
	lastBody    string
	lastAuthURL string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/authorize/") {
		f.authCalls.Add(1)
		f.mu.Lock()
		f.lastAuthURL = r.URL.EscapedPath()
		f.mu.Unlock()
		w.WriteHeader(f.authStatus)
		io.WriteString(w, f.authBody)
		return
	}

	f.opCalls.Add(1)
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.lastPath = r.URL.Path
	f.lastMethod = r.Method
	f.lastAuth = r.Header.Get("Authorization")
	f.lastType = r.Header.Get("Content-Type")
	f.lastBody = string(body)
	f.mu.Unlock()

	w.WriteHeader(f.opStatus)
	io.WriteString(w, f.opBody)
}

func newFake(t *testing.T, f *fakeAPI) *Client {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	return New("DummyUser", "DummyPass@123",
		WithDashboardURL(server.URL+"/api/"),
		WithSendURL(server.URL+"/api/mail/send"),
		WithHTTPClient(server.Client()),
	)
}

func okAuth() *fakeAPI {
	return &fakeAPI{
		authStatus: http.StatusOK,
		authBody:   `{"auth":"tok-123"}`,
		opStatus:   http.StatusOK,
		opBody:     `{"message":"OK"}`,
	}
}

type operation struct {
	name   string
	call   func(*Client) string
	method string
	path   string
}

func operations() []operation {
	ctx := context.Background()
	return []operation{
		{"send mail", func(c *Client) string {
			return c.SendMail(ctx, SendParams{From: "sample123@gmail.com", To: "sample456@gmail.com"})
		}, http.MethodPost, "/api/mail/send"},
		{"account info", func(c *Client) string { return c.AccountInfo(ctx) }, http.MethodGet, "/api/user/info"},
		{"active plans", func(c *Client) string { return c.ActivePlans(ctx) }, http.MethodGet, "/api/plans"},
		{"sub accounts", func(c *Client) string { return c.SubAccounts(ctx) }, http.MethodGet, "/api/useraccounts/summary"},
		{"stats", func(c *Client) string { return c.LastEmailSentStatistics(ctx, "25") }, http.MethodGet, "/api/stats/email-feed-last/25"},
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New("u", "p")
	assert.Equal(t, DefaultDashboardURL, c.dashboardURL)
	assert.Equal(t, DefaultSendURL, c.sendURL)
	require.NotNil(t, c.httpClient)
	assert.NotZero(t, c.httpClient.Timeout)
	assert.NotNil(t, c.logger)
}

func TestOperations_Success(t *testing.T) {
	t.Parallel()

	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			t.Parallel()

			f := okAuth()
			c := newFake(t, f)

			result := op.call(c)

			assert.Equal(t, `{"message":"OK"}`, result)
			assert.NoError(t, ParseResult(result))
			assert.EqualValues(t, 1, f.authCalls.Load())
			assert.EqualValues(t, 1, f.opCalls.Load())
			assert.Equal(t, "/api/authorize/DummyUser/DummyPass@123", f.lastAuthURL)
			assert.Equal(t, op.method, f.lastMethod)
			assert.Equal(t, op.path, f.lastPath)
			assert.Equal(t, "tok-123", f.lastAuth)
		})
	}
}

func TestOperations_AuthFailureSkipsSecondCall(t *testing.T) {
	t.Parallel()

	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			t.Parallel()

			f := okAuth()
			f.authStatus = http.StatusUnauthorized
			f.authBody = "bad credentials"
			c := newFake(t, f)

			result := op.call(c)

			assert.Equal(t, `{"error": "authCookie is null/error. bad credentials", "errorCode": 401}`, result)
			assert.Contains(t, result, `"error"`)
			assert.Contains(t, result, `"errorCode"`)
			assert.EqualValues(t, 1, f.authCalls.Load())
			assert.EqualValues(t, 0, f.opCalls.Load())

			err := ParseResult(result)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuthFailed)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestOperations_OperationFailureUsesSecondResponse(t *testing.T) {
	t.Parallel()

	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			t.Parallel()

			f := okAuth()
			f.opStatus = http.StatusBadRequest
			f.opBody = "invalid request"
			c := newFake(t, f)

			result := op.call(c)

			assert.Equal(t, `{"error": "invalid request", "errorCode": 400}`, result)
			assert.EqualValues(t, 1, f.opCalls.Load())

			var rerr *ResultError
			require.ErrorAs(t, ParseResult(result), &rerr)
			assert.Equal(t, 400, rerr.Code)
			assert.Equal(t, "invalid request", rerr.Message)
			assert.NotErrorIs(t, rerr, ErrAuthFailed)
		})
	}
}

func TestSendMail_Body(t *testing.T) {
	t.Parallel()

	f := okAuth()
	c := newFake(t, f)

	result := c.SendMail(context.Background(), SendParams{
		From:          "sample123@gmail.com",
		To:            "sample456@gmail.com",
		Subject:       "test subject",
		Cc:            "sample789@gmail.com",
		Bcc:           "test123@gmail.com",
		Content:       "Sample plain text content",
		HTMLContent:   "<body>Sample html content</body>",
		CustomHeaders: `{"X-key1":"value1", "X-key2":"value2"}`,
		RawMime:       "Sample raw mime message",
	})
	require.Equal(t, `{"message":"OK"}`, result)

	assert.Equal(t, "application/json", f.lastType)
	assert.Equal(t,
		`{"authuser":"DummyUser","authpass":"DummyPass@123","from":"sample123@gmail.com","to":"sample456@gmail.com",`+
			`"subject":"test subject","cc":"sample789@gmail.com","bcc":"test123@gmail.com",`+
			`"content":"Sample plain text content","html_content":"<body>Sample html content</body>",`+
			`"custom_headers":{"X-key1":"value1", "X-key2":"value2"},"mime_raw":"Sample raw mime message"}`,
		f.lastBody,
	)
}

func TestSendMail_EmptyOptionalFieldsOmitted(t *testing.T) {
	t.Parallel()

	f := okAuth()
	c := newFake(t, f)

	c.SendMail(context.Background(), SendParams{From: "a@x.io", To: "b@x.io", Content: "hi"})

	assert.Equal(t,
		`{"authuser":"DummyUser","authpass":"DummyPass@123","from":"a@x.io","to":"b@x.io","content":"hi"}`,
		f.lastBody,
	)
}

func TestGetOperations_NoBody(t *testing.T) {
	t.Parallel()

	f := okAuth()
	c := newFake(t, f)

	c.AccountInfo(context.Background())

	assert.Empty(t, f.lastBody)
	assert.Empty(t, f.lastType)
}

func TestAuthenticate_OKWithErrorKey(t *testing.T) {
	t.Parallel()

	f := okAuth()
	f.authBody = `{"error":"account suspended","errorCode":403}`
	c := newFake(t, f)

	result := c.AccountInfo(context.Background())

	assert.Equal(t, `{"error": "authCookie is null/error. account suspended", "errorCode": 403}`, result)
	assert.EqualValues(t, 0, f.opCalls.Load())
}

func TestAuthenticate_MalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"json array", `["auth"]`},
		{"missing auth", `{"token":"x"}`},
		{"non-string auth", `{"auth":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := okAuth()
			f.authBody = tt.body
			c := newFake(t, f)

			result := c.ActivePlans(context.Background())

			err := ParseResult(result)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuthFailed)

			var rerr *ResultError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, http.StatusOK, rerr.Code)
			assert.EqualValues(t, 0, f.opCalls.Load())
		})
	}
}

func TestAuthenticate_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	c := New("user", "s3cret", WithDashboardURL(base+"/api"), WithSendURL(base+"/send"))

	for _, op := range operations() {
		result := op.call(c)

		err := ParseResult(result)
		require.Error(t, err, op.name)
		assert.ErrorIs(t, err, ErrTransport, op.name)
		assert.ErrorIs(t, err, ErrAuthFailed, op.name)
		assert.NotContains(t, result, "s3cret", op.name)
	}
}

func TestOperation_TransportErrorAfterAuth(t *testing.T) {
	t.Parallel()

	f := okAuth()
	c := newFake(t, f)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	c.sendURL = deadURL + "/api/mail/send"

	result := c.SendMail(context.Background(), SendParams{From: "a@x.io", To: "b@x.io"})

	err := ParseResult(result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrAuthFailed)
}

func TestAuthenticate_EscapesPathSegments(t *testing.T) {
	t.Parallel()

	f := okAuth()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	c := New("user@example.com", "pa/ss?#", WithDashboardURL(server.URL+"/api"), WithHTTPClient(server.Client()))
	result := c.AccountInfo(context.Background())

	require.NoError(t, ParseResult(result))
	assert.Equal(t, "/api/authorize/user@example.com/pa%2Fss%3F%23", f.lastAuthURL)
}

func TestOperations_ReauthenticateEveryCall(t *testing.T) {
	t.Parallel()

	f := okAuth()
	c := newFake(t, f)

	for i := 0; i < 3; i++ {
		c.AccountInfo(context.Background())
	}

	assert.EqualValues(t, 3, f.authCalls.Load())
	assert.EqualValues(t, 3, f.opCalls.Load())
}

func TestOperations_Concurrent(t *testing.T) {
	t.Parallel()

	f := okAuth()
	c := newFake(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, `{"message":"OK"}`, c.SubAccounts(context.Background()))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, f.authCalls.Load())
}

func TestLastEmailSentStatistics_EscapesCount(t *testing.T) {
	t.Parallel()

	f := okAuth()
	c := newFake(t, f)

	result := c.LastEmailSentStatistics(context.Background(), "10?limit=1#x")

	require.NoError(t, ParseResult(result))
	assert.Equal(t, "/api/stats/email-feed-last/10?limit=1#x", f.lastPath)
}
