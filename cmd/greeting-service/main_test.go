package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-greeting-service/internal/config"
	"github.com/tbourn/go-greeting-service/internal/repo"
)

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, loadEnvFile(""))
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GREETING_TEST_FROM_FILE=hello\nGREETING_TEST_PRESET=file\n"), 0o600))
	t.Setenv("GREETING_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("GREETING_TEST_FROM_FILE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("GREETING_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("GREETING_TEST_PRESET"), "existing variables are not overridden")
}

func TestProfileSeed_DefaultWins(t *testing.T) {
	got := profileSeed(config.GreetingConfig{
		DefaultProfile: "default",
		DefaultMessage: "Hello from default profile",
		Profiles: map[string]string{
			"prod":    "Hello from prod profile",
			"default": "shadowed",
		},
	})
	assert.Equal(t, map[string]string{
		"default": "Hello from default profile",
		"prod":    "Hello from prod profile",
	}, got)
}

func TestOpenStore_MigratesAndSeeds(t *testing.T) {
	cfg := config.Config{
		DBPath: filepath.Join(t.TempDir(), "greetings.db"),
		Greeting: config.GreetingConfig{
			DefaultProfile: "default",
			DefaultMessage: "Hello from default profile",
			Profiles:       map[string]string{"qa": "Hello from qa"},
		},
	}
	ctx := context.Background()
	db, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	n, err := repo.CountProfiles(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Reseeding on restart is idempotent.
	db2, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	if sqlDB, err := db2.DB(); err == nil {
		defer sqlDB.Close()
	}
	n, err = repo.CountProfiles(ctx, db2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestOpenStore_BadPath(t *testing.T) {
	_, err := openStore(context.Background(), config.Config{
		DBPath: filepath.Join(t.TempDir(), "missing", "greetings.db"),
	}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewServer_UsesConfig(t *testing.T) {
	cfg := config.Config{
		Port:              "9090",
		ReadTimeout:       time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       4 * time.Second,
		MaxHeaderBytes:    4096,
	}
	srv := newServer(cfg, http.NotFoundHandler())
	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, time.Second, srv.ReadTimeout)
	assert.Equal(t, 2*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 3*time.Second, srv.WriteTimeout)
	assert.Equal(t, 4*time.Second, srv.IdleTimeout)
	assert.Equal(t, 4096, srv.MaxHeaderBytes)
}

func TestServe_GracefulShutdownOnCancel(t *testing.T) {
	cfg := config.Config{Port: "0", ShutdownTimeout: time.Second, APIBasePath: "/v1"}
	srv := newServer(cfg, http.NotFoundHandler())
	srv.Addr = "127.0.0.1:0"

	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, cfg, zerolog.New(&buf)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Contains(t, buf.String(), "server stopped")
}

func TestServe_ListenError(t *testing.T) {
	cfg := config.Config{ShutdownTimeout: time.Second}
	srv := newServer(cfg, http.NotFoundHandler())
	srv.Addr = "256.0.0.1:bad"

	err := serve(context.Background(), srv, cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	assert.NoError(t, probe(context.Background(), ok.URL+"/health", time.Second))
	assert.ErrorContains(t, probe(context.Background(), ok.URL+"/nope", time.Second), "returned 404")
	assert.Error(t, probe(context.Background(), "http://127.0.0.1:1/health", 200*time.Millisecond))
}

func TestDefaultHealthURL(t *testing.T) {
	t.Setenv("PORT", "")
	assert.Equal(t, "http://127.0.0.1:8080/health", defaultHealthURL())
	t.Setenv("PORT", "9999")
	assert.Equal(t, "http://127.0.0.1:9999/health", defaultHealthURL())
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["healthcheck"])
}
