package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-greeting-service/internal/domain"
	"github.com/tbourn/go-greeting-service/internal/http/errorhandler"
)

type stubGreetingSvc struct {
	greeting string
	err      error

	calls      int
	gotName    string
	gotProfile string
}

func (s *stubGreetingSvc) RetrieveGreeting(ctx context.Context, name, profile string) (string, error) {
	s.calls++
	s.gotName, s.gotProfile = name, profile
	return s.greeting, s.err
}

// newTestRouter mounts the handler and captures the last error recorded on
// the context, standing in for the translator middleware.
func newTestRouter(h *Handlers, lastErr *error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if last := c.Errors.Last(); last != nil {
			*lastErr = last.Err
			if !c.Writer.Written() {
				c.Status(http.StatusTeapot)
			}
		}
	})
	r.GET("/v1/greetings/:name", h.RetrieveGreeting)
	return r
}

func TestRetrieveGreeting_Success_PlainText(t *testing.T) {
	svc := &stubGreetingSvc{greeting: "Sheldon, Hello from default profile"}
	var buf bytes.Buffer
	var gotErr error
	r := newTestRouter(New(svc, zerolog.New(&buf), 0), &gotErr)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/greetings/Sheldon", nil))

	require.NoError(t, gotErr)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sheldon, Hello from default profile", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "Sheldon", svc.gotName)
	assert.Equal(t, "", svc.gotProfile)
}

func TestRetrieveGreeting_LogsExactlyOneLineWithName(t *testing.T) {
	svc := &stubGreetingSvc{greeting: "Sheldon, hi"}
	var buf bytes.Buffer
	var gotErr error
	r := newTestRouter(New(svc, zerolog.New(&buf), 0), &gotErr)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/greetings/Sheldon", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Sheldon")
	assert.Contains(t, lines[0], `"level":"info"`)
}

func TestRetrieveGreeting_PassesProfile(t *testing.T) {
	svc := &stubGreetingSvc{greeting: "Amy, Hello from prod profile"}
	var gotErr error
	r := newTestRouter(New(svc, zerolog.Nop(), 0), &gotErr)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/greetings/Amy?profile=prod", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "prod", svc.gotProfile)
}

func TestRetrieveGreeting_ServiceErrorRecordedNotWritten(t *testing.T) {
	svc := &stubGreetingSvc{err: domain.ProfileNotValid("pirate")}
	var gotErr error
	r := newTestRouter(New(svc, zerolog.Nop(), 0), &gotErr)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/greetings/Amy?profile=pirate", nil))

	assert.Equal(t, http.StatusTeapot, w.Code, "handler must not write failures itself")
	assert.True(t, errors.Is(gotErr, domain.ErrProfileNotValid))
}

func TestRetrieveGreeting_ValidationAggregatesFields(t *testing.T) {
	svc := &stubGreetingSvc{}
	var gotErr error
	r := newTestRouter(New(svc, zerolog.Nop(), 0), &gotErr)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/greetings/%20%20?profile=no-dashes!", nil))

	assert.Equal(t, 0, svc.calls)
	var verrs validator.ValidationErrors
	require.True(t, errors.As(gotErr, &verrs), "got %T", gotErr)
	require.Len(t, verrs, 2)

	tags := map[string]string{}
	for _, fe := range verrs {
		tags[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{"Name": "notblank", "Profile": "alphanum"}, tags)
}

func TestRetrieveGreeting_RejectsMalformedUTF8Name(t *testing.T) {
	svc := &stubGreetingSvc{greeting: "unused"}
	var gotErr error
	r := newTestRouter(New(svc, zerolog.Nop(), 0), &gotErr)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/greetings/%FF%FE", nil))

	assert.Equal(t, 0, svc.calls)
	assert.Equal(t, http.StatusTeapot, w.Code)
	var verrs validator.ValidationErrors
	require.True(t, errors.As(gotErr, &verrs), "got %T", gotErr)
	require.Len(t, verrs, 1)
	assert.Equal(t, "utf8", verrs[0].Tag())
	assert.Equal(t, []string{"name must be valid UTF-8"}, errorhandler.FieldMessages(verrs))
}

func TestRetrieveGreeting_NameLengthFromConfig(t *testing.T) {
	svc := &stubGreetingSvc{greeting: "ok"}
	var gotErr error
	r := newTestRouter(New(svc, zerolog.Nop(), 5), &gotErr)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/greetings/Leonard", nil))

	var verrs validator.ValidationErrors
	require.True(t, errors.As(gotErr, &verrs))
	assert.Equal(t, "max", verrs[0].Tag())
	assert.Equal(t, "5", verrs[0].Param())

	// Limits count runes, not bytes.
	gotErr = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/greetings/Zo%C3%AB%C3%AB%C3%AB", nil))
	assert.NoError(t, gotErr)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_DefaultNameMaxLen(t *testing.T) {
	h := New(&stubGreetingSvc{}, zerolog.Nop(), -1)
	long := strings.Repeat("a", DefaultNameMaxLen)
	assert.NoError(t, h.validate.Struct(&GreetingRequest{Name: long}))
	assert.Error(t, h.validate.Struct(&GreetingRequest{Name: long + "a"}))
}
