package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-greeting-service/internal/sysutil"
)

var (
	healthURL     string
	healthTimeout time.Duration
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe the /health endpoint of a running instance",
	Long: `Exit with status 0 when GET /health answers 200, non-zero otherwise.
Intended for container HEALTHCHECK directives.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		url := sysutil.FirstNonEmpty(healthURL, defaultHealthURL())
		if err := probe(cmd.Context(), url, healthTimeout); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().StringVar(&healthURL, "url", "", "health URL (default http://127.0.0.1:$PORT/health)")
	healthcheckCmd.Flags().DurationVar(&healthTimeout, "timeout", 3*time.Second, "request timeout")
}

func defaultHealthURL() string {
	port := sysutil.FirstNonEmpty(os.Getenv("PORT"), "8080")
	return "http://127.0.0.1:" + port + "/health"
}

// probe issues GET url and fails unless the response is 200.
func probe(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck: %s returned %d", url, resp.StatusCode)
	}
	return nil
}
