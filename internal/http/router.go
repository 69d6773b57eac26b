// Package httpapi wires the HTTP transport (Gin) to the greeting service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, access logging, error translation, panic
// recovery, compression, metrics, rate limiting, CORS and security headers.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-greeting-service/docs"
	"github.com/tbourn/go-greeting-service/internal/config"
	"github.com/tbourn/go-greeting-service/internal/domain"
	"github.com/tbourn/go-greeting-service/internal/http/errorhandler"
	"github.com/tbourn/go-greeting-service/internal/http/handlers"
	"github.com/tbourn/go-greeting-service/internal/http/middleware"
	"github.com/tbourn/go-greeting-service/internal/repo"
	"github.com/tbourn/go-greeting-service/internal/services"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// profileRepoShim adapts the repo free functions to services.ProfileRepo.
type profileRepoShim struct{}

// GetProfile proxies repo.GetProfile.
func (profileRepoShim) GetProfile(ctx context.Context, db *gorm.DB, name string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, db, name)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the greeting API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: one redacted line per request, after the response is final
//  4. Metrics: observes the final status and size
//  5. Gzip: wraps the writer for everything written below it
//  6. ErrorTranslator: answers failures recorded on the context
//  7. Recovery: turns panics into recorded failures for step 6
//  8. Body size limiter
//  9. Rate limiter (per client IP, health and metrics exempt)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, lg zerolog.Logger) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(lg, middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{metricsPath})))
	r.Use(middleware.ErrorTranslator(errorhandler.New(lg)))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP(), healthPath, metricsPath)
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(handlers.NotFound)
	r.NoMethod(handlers.MethodNotAllowed)

	r.GET(healthPath, handlers.Health)
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	greetSvc := services.NewGreetingService(db, profileRepoShim{}, cfg.Greeting.DefaultProfile)
	h := handlers.New(greetSvc, lg, cfg.Greeting.NameMaxLen)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/greetings/:name", h.RetrieveGreeting)
	}
}

// corsMiddleware returns the CORS posture for the given allowlist. With no
// origins configured every origin is allowed and ACAO is forced to "*" even
// for requests without an Origin header.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Accept", "Accept-Encoding", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Requests exceeding the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
