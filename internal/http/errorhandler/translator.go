// Package errorhandler translates failures raised while serving a request
// into HTTP responses.
//
// A Translator walks an ordered rule table, most specific first, and the first
// rule whose matcher accepts the error produces the response:
//
//  1. domain failures (*domain.DomainError)          → 400, the error message
//  2. validation failures (*domain.ValidationError,
//     validator.ValidationErrors)                     → 400, sorted messages joined by ", "
//  3. anything else                                   → 500, the error message or empty
//
// Each call logs the failure exactly once through the injected logger, with
// the stack attached when the failure carries one. The
// Translator keeps no per-request state and is safe for concurrent use.
package errorhandler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-greeting-service/internal/domain"
)

// Kind names the rule that classified a failure.
type Kind string

const (
	KindDomain       Kind = "domain"
	KindValidation   Kind = "validation"
	KindUnclassified Kind = "unclassified"
)

// RequestContext describes the request that produced a failure. It is only
// used for logging.
type RequestContext struct {
	Method    string
	Path      string
	ClientIP  string
	RequestID string
}

// String renders the context as "uri=<path>;client=<ip>".
func (r RequestContext) String() string {
	return fmt.Sprintf("uri=%s;client=%s", r.Path, r.ClientIP)
}

// Response is the translated outcome: a status code and a plain-text body.
type Response struct {
	Status int
	Body   string
	Kind   Kind
}

// Handler converts a failure into a Response.
type Handler interface {
	Handle(err error, req RequestContext) Response
}

// rule binds a classifier to the response it produces. match returns the
// specific error it recognised so respond does not repeat the lookup.
type rule struct {
	kind    Kind
	match   func(error) (error, bool)
	respond func(lg zerolog.Logger, matched error, req RequestContext) Response
}

// rules is evaluated top to bottom; order is the only dispatch policy.
var rules = []rule{
	{kind: KindDomain, match: matchDomain, respond: respondDomain},
	{kind: KindValidation, match: matchValidation, respond: respondValidation},
}

// Translator is the default Handler.
type Translator struct {
	log zerolog.Logger
}

var _ Handler = (*Translator)(nil)

// New returns a Translator that logs through lg.
func New(lg zerolog.Logger) *Translator {
	return &Translator{log: lg}
}

// Handle classifies err and returns the response for it. A nil err is
// treated as an unclassified failure without a message.
func (t *Translator) Handle(err error, req RequestContext) Response {
	lg := t.log.With().Str("request_id", req.RequestID).Logger()
	if err != nil {
		for _, r := range rules {
			if matched, ok := r.match(err); ok {
				return r.respond(lg, matched, req)
			}
		}
	}
	return respondUnclassified(lg, err, req)
}

func matchDomain(err error) (error, bool) {
	var de *domain.DomainError
	if errors.As(err, &de) && de != nil {
		return de, true
	}
	return nil, false
}

func respondDomain(lg zerolog.Logger, matched error, req RequestContext) Response {
	de := matched.(*domain.DomainError)
	lg.Info().
		Str("kind", de.Kind).
		Msgf("domain failure occurred: %s on request: %s", de.Message, req)
	return Response{Status: http.StatusBadRequest, Body: de.Message, Kind: KindDomain}
}

func matchValidation(err error) (error, bool) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) && ve != nil {
		return ve, true
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return domain.NewValidationError(FieldMessages(fieldErrs)...), true
	}
	return nil, false
}

func respondValidation(lg zerolog.Logger, matched error, req RequestContext) Response {
	ve := matched.(*domain.ValidationError)
	body := strings.Join(ve.Sorted(), ", ")
	lg.Error().
		Err(ve).
		Msgf("validation failure observed: %s on request: %s", body, req)
	return Response{Status: http.StatusBadRequest, Body: body, Kind: KindValidation}
}

// stackTracer is implemented by failures that carry the stack they were
// raised on, such as recovered panics.
type stackTracer interface {
	StackTrace() []byte
}

func respondUnclassified(lg zerolog.Logger, err error, req RequestContext) Response {
	var msg string
	if err != nil {
		msg = err.Error()
	}
	ev := lg.Error().Err(err)
	var st stackTracer
	if errors.As(err, &st) {
		ev = ev.Bytes("stack", st.StackTrace())
	}
	ev.Msgf("failure occurred: %s on request: %s", msg, req)
	return Response{Status: http.StatusInternalServerError, Body: msg, Kind: KindUnclassified}
}
