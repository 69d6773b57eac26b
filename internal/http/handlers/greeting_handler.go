// Greeting HTTP handler.
//
// This file exposes the single public lookup endpoint:
//   - GET {base}/greetings/{name}?profile=<profile>
//
// The handler is transport-thin. It binds and validates the request, hands it
// to the greeting service and writes the greeting as text/plain. Failures are
// recorded with c.Error and answered by the error translator middleware.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-greeting-service/internal/http/middleware"
)

// DefaultNameMaxLen bounds the name length when New is given a non-positive
// limit.
const DefaultNameMaxLen = 64

// profileMaxLen bounds the optional profile selector.
const profileMaxLen = 32

// GreetingService is the lookup capability consumed by the handler.
// Implementations must be safe for concurrent use.
type GreetingService interface {
	RetrieveGreeting(ctx context.Context, name, profile string) (string, error)
}

// GreetingRequest is the validated input of a lookup.
type GreetingRequest struct {
	// Name is the person to greet, taken from the path.
	Name string `uri:"name" example:"Sheldon"`
	// Profile optionally selects the greeting profile.
	Profile string `form:"profile" example:"prod"`
}

// Handlers groups the greeting endpoints.
type Handlers struct {
	greetSvc GreetingService
	log      zerolog.Logger
	validate *validator.Validate
}

// New wires the handlers to svc. Every lookup logs one line through the
// request-scoped logger, or lg when none is installed.
// nameMaxLen limits names in runes; values <= 0 use DefaultNameMaxLen.
func New(svc GreetingService, lg zerolog.Logger, nameMaxLen int) *Handlers {
	if nameMaxLen <= 0 {
		nameMaxLen = DefaultNameMaxLen
	}
	return &Handlers{
		greetSvc: svc,
		log:      lg,
		validate: newRequestValidator(nameMaxLen),
	}
}

// newRequestValidator builds a validator holding the GreetingRequest rules.
// The rules live here rather than in struct tags so the name limit can come
// from configuration.
func newRequestValidator(nameMaxLen int) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("utf8", validUTF8)
	v.RegisterStructValidationMapRules(map[string]string{
		"Name":    "notblank,utf8,max=" + strconv.Itoa(nameMaxLen),
		"Profile": "omitempty,alphanum,max=" + strconv.Itoa(profileMaxLen),
	}, GreetingRequest{})
	return v
}

// validUTF8 rejects strings that are not well-formed UTF-8, since the name is
// echoed back in a text/plain; charset=utf-8 body.
func validUTF8(fl validator.FieldLevel) bool {
	return utf8.ValidString(fl.Field().String())
}

// RetrieveGreeting godoc
// @ID          retrieveGreeting
// @Summary     Greet a person
// @Description Returns "<name>, <message>" where the message comes from the selected profile (or the default profile).
// @Tags        Greetings
// @Produce     plain
//
// @Param       name     path   string  true   "Name to greet"           maxLength(64)  example(Sheldon)
// @Param       profile  query  string  false  "Greeting profile"        maxLength(32)  example(prod)
//
// @Success     200  {string}  string                  "Sheldon, Hello from default profile"
// @Failure     400  {string}  string                  "Unknown profile or invalid input"
// @Failure     404  {object}  handlers.ErrorResponse  "Route not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {string}  string                  "Internal error"
// @Router      /greetings/{name} [get]
func (h *Handlers) RetrieveGreeting(c *gin.Context) {
	req := GreetingRequest{
		Name:    c.Param("name"),
		Profile: c.Query("profile"),
	}
	lg := middleware.LoggerFrom(c, h.log)
	lg.Info().
		Str("name", req.Name).
		Str("profile", req.Profile).
		Msgf("retrieving greeting for name: %s", req.Name)

	if err := h.validate.Struct(&req); err != nil {
		_ = c.Error(err)
		return
	}

	greeting, err := h.greetSvc.RetrieveGreeting(c.Request.Context(), req.Name, req.Profile)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.String(http.StatusOK, greeting)
}
