package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-greeting-service/internal/config"
	httpapi "github.com/tbourn/go-greeting-service/internal/http"
	"github.com/tbourn/go-greeting-service/internal/observability"
	"github.com/tbourn/go-greeting-service/internal/repo"
	"github.com/tbourn/go-greeting-service/internal/sysutil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the greeting HTTP server. The profile store is migrated and seeded
from GREETING_PROFILE, GREETING_MESSAGE and GREETING_PROFILES on every start.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	lg := sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version, lg)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := openStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, cfg, lg)

	return serve(ctx, newServer(cfg, engine), cfg, lg)
}

// openStore opens the profile database, migrates it and seeds the configured
// profiles.
func openStore(ctx context.Context, cfg config.Config, lg zerolog.Logger) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath, lg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := repo.SeedProfiles(ctx, db, profileSeed(cfg.Greeting)); err != nil {
		return nil, fmt.Errorf("seed profiles: %w", err)
	}
	return db, nil
}

// profileSeed merges the default profile into the extra profiles. The
// default profile's message wins over an extra entry with the same name.
func profileSeed(g config.GreetingConfig) map[string]string {
	out := make(map[string]string, len(g.Profiles)+1)
	for name, msg := range g.Profiles {
		out[name] = msg
	}
	out[g.DefaultProfile] = g.DefaultMessage
	return out
}

func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// serve runs srv until ctx is cancelled, then drains in-flight requests
// within cfg.ShutdownTimeout.
func serve(ctx context.Context, srv *http.Server, cfg config.Config, lg zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	lg.Info().Msg("server stopped")
	return nil
}
