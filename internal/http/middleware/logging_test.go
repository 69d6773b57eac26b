package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		if RequestIDFrom(c) == "" {
			t.Fatalf("requestID not set in context")
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rid", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated %s header", requestIDHeader)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/rid", nil)
	req2.Header.Set(strings.ToLower(requestIDHeader), "abc-123")
	r.ServeHTTP(w2, req2)
	if got := w2.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestRequestIDFrom_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := RequestIDFrom(c); got != "" {
		t.Fatalf("RequestIDFrom without middleware = %q", got)
	}
}

func TestAccessLog_LevelsAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(RequestID())
	r.Use(AccessLog(zerolog.New(&buf), RedactOptions{}))
	r.GET("/v1/greetings/:name", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "x") })

	for _, p := range []string{"/v1/greetings/Sheldon", "/missing", "/boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) || !strings.Contains(logs, `"path":"/v1/greetings/:name"`) {
		t.Fatalf("expected info log with route path, got:\n%s", logs)
	}
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"path":"/missing"`) {
		t.Fatalf("expected warn log with raw path fallback, got:\n%s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"status":500`) {
		t.Fatalf("expected error log for 5xx, got:\n%s", logs)
	}
	if n := strings.Count(logs, `"message":"http_request"`); n != 3 {
		t.Fatalf("expected 3 access lines, got %d", n)
	}
}

func TestAccessLog_RedactsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(AccessLog(zerolog.New(&buf), RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/v1/greetings/:name", func(c *gin.Context) { c.String(http.StatusOK, "hi") })

	req := httptest.NewRequest(http.MethodGet,
		"/v1/greetings/a?email=amy@example.com&id=123e4567-e89b-42d3-a456-426614174000", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Api-Key", "k-1")
	req.Header.Set("X-Note", "call 555-123-4567")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leaked := range []string{"amy@example.com", "123e4567", "Bearer secret", "k-1", "555-123-4567"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q:\n%s", leaked, out)
		}
	}
	for _, want := range []string{"[REDACTED:email]", "[REDACTED:id]", "[REDACTED:phone]", `"Authorization":"[REDACTED]"`, `"X-Api-Key":"[REDACTED]"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log:\n%s", want, out)
		}
	}
}

func TestLoggerFrom_FallbackAndRequestScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf1 bytes.Buffer
	r1 := gin.New()
	r1.Use(RequestID())
	r1.GET("/use", func(c *gin.Context) {
		lg := LoggerFrom(c, zerolog.New(&buf1))
		lg.Info().Msg("custom")
		c.Status(http.StatusOK)
	})
	r1.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))
	if !strings.Contains(buf1.String(), `"message":"custom"`) {
		t.Fatalf("expected custom log in fallback")
	}
	if strings.Contains(buf1.String(), `"request_id"`) {
		t.Fatalf("fallback logger unexpectedly had request_id")
	}

	var buf2 bytes.Buffer
	r2 := gin.New()
	r2.Use(RequestID())
	r2.Use(AccessLog(zerolog.New(&buf2), RedactOptions{}))
	r2.GET("/use", func(c *gin.Context) {
		lg := LoggerFrom(c, zerolog.Nop())
		lg.Info().Msg("custom2")
		c.Status(http.StatusOK)
	})
	r2.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))
	out := buf2.String()
	if !strings.Contains(out, `"message":"custom2"`) || !strings.Contains(out, `"request_id"`) {
		t.Fatalf("expected request-scoped logger to include request_id, got:\n%s", out)
	}
}

func TestRecovery_RecordsPanicError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_ = captureLogger(t)

	var recorded *PanicError
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if last := c.Errors.Last(); last != nil {
			errors.As(last.Err, &recorded)
		}
		c.Status(http.StatusTeapot)
	})
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if recorded == nil {
		t.Fatalf("expected *PanicError on c.Errors")
	}
	if recorded.Value != "kaboom" || len(recorded.Stack) == 0 || len(recorded.StackTrace()) == 0 {
		t.Fatalf("unexpected panic error: %+v", recorded)
	}
	if recorded.Error() != "panic: kaboom" {
		t.Fatalf("Error() = %q", recorded.Error())
	}
	if recorded.Unwrap() != nil {
		t.Fatalf("string panic should not unwrap to an error")
	}
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	cause := errors.New("bad state")
	pe := &PanicError{Value: cause}
	if !errors.Is(pe, cause) {
		t.Fatalf("expected errors.Is to reach the panic value")
	}
}

func TestHelpers_asString_and_truncate(t *testing.T) {
	if asString("x") != "x" || asString(123) != "" {
		t.Fatalf("asString failed")
	}
	if truncate("hello", 10) != "hello" {
		t.Fatalf("truncate no-op failed")
	}
	if got := truncate("abcdefgh", 5); got != "abcde…" {
		t.Fatalf("truncate result = %q; want %q", got, "abcde…")
	}
	if truncate("abc", 0) != "abc" {
		t.Fatalf("truncate disable failed")
	}
}
