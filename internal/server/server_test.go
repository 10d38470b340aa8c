package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"contact_intake/internal/config"
	"contact_intake/internal/intake"
	"contact_intake/internal/submission"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []submission.Cleaned
}

func (n *recordingNotifier) Notify(_ context.Context, cleaned submission.Cleaned) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, cleaned)
	return nil
}

type recordingAppender struct {
	mu      sync.Mutex
	sources []string
}

func (a *recordingAppender) Append(_ context.Context, _ submission.Cleaned, source string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources = append(a.sources, source)
	return true, nil
}

func newTestServer(origins ...string) (*Server, *recordingNotifier, *recordingAppender) {
	return newTestServerWithConfig(Config{Path: "/contact", AllowOrigins: origins})
}

func newTestServerWithConfig(cfg Config) (*Server, *recordingNotifier, *recordingAppender) {
	notifier := &recordingNotifier{}
	appender := &recordingAppender{}
	orchestrator := intake.New(notifier, appender, intake.Options{
		HoneypotField: "website",
		Resilience:    config.DefaultResilienceConfig,
	})
	srv := New(cfg, orchestrator, zerolog.Nop())
	return srv, notifier, appender
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) intake.Response {
	t.Helper()
	var resp intake.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLiveness(t *testing.T) {
	srv, _, _ := newTestServer("*")

	for _, path := range []string{"/", "/contact"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, intake.Response{OK: true, Message: "Service is up"}, decodeResponse(t, rec))
	}
}

func TestPreflight(t *testing.T) {
	srv, _, _ := newTestServer("*")

	req := httptest.NewRequest(http.MethodOptions, "/contact", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSRestrictedOrigin(t *testing.T) {
	srv, _, _ := newTestServer("https://portfolio.example")

	allowed := httptest.NewRequest(http.MethodGet, "/contact", nil)
	allowed.Header.Set("Origin", "https://portfolio.example")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, allowed)
	assert.Equal(t, "https://portfolio.example", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/contact", nil)
	other.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, other)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitJSON(t *testing.T) {
	srv, notifier, appender := newTestServerWithConfig(Config{Path: "/contact", AllowOrigins: []string{"*"}, TrustProxy: true})

	body := `{"name":"Jo Ann","email":"jo@example.com","subject":"Hello there","message":"This is a test message."}`
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, intake.Response{OK: true}, decodeResponse(t, rec))
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, []string{"203.0.113.7"}, appender.sources)
}

func TestSubmitIgnoresForwardedForWithoutTrustedProxy(t *testing.T) {
	srv, _, appender := newTestServer("*")

	body := `{"name":"Jo Ann","email":"jo@example.com","subject":"Hello there","message":"This is a test message."}`
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.RemoteAddr = "198.51.100.20:52100"
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, intake.Response{OK: true}, decodeResponse(t, rec))
	assert.Equal(t, []string{"198.51.100.20"}, appender.sources)
}

func TestSubmitValidationErrorKeepsStatus200(t *testing.T) {
	srv, notifier, _ := newTestServer("*")

	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader("name=Jo&email=bob%40%40x&subject=Hello+there&message=This+is+a+test"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, intake.Response{OK: false, Error: "Invalid email format", StatusCode: 400}, decodeResponse(t, rec))
	assert.Empty(t, notifier.calls)
}

func TestSubmitBodyTooLarge(t *testing.T) {
	notifier := &recordingNotifier{}
	orchestrator := intake.New(notifier, nil, intake.Options{HoneypotField: "website"})
	srv := New(Config{MaxBodyBytes: 16}, orchestrator, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(strings.Repeat("a", 64)))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, intake.Response{OK: false, Error: intake.MsgInvalidBody, StatusCode: 400}, decodeResponse(t, rec))
	assert.Empty(t, notifier.calls)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	orchestrator := intake.New(&recordingNotifier{}, nil, intake.Options{})
	srv := New(Config{Addr: "127.0.0.1:0"}, orchestrator, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
