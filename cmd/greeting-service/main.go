// Command greeting-service serves plain-text greetings over HTTP.
//
//	greeting-service serve          # start the HTTP server
//	greeting-service healthcheck    # probe a running instance
//
// Configuration comes from the environment, optionally preloaded from a
// dotenv file (see --env-file).
//
// @title       Greeting Service API
// @version     1.0
// @description Plain-text greeting lookups with profile-based messages.
// @BasePath    /v1
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
