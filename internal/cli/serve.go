package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lucien1999s/meeting-ai/internal/server"
)

// ServeCmd creates the serve command.
// The env parameter provides injectable dependencies for testing.
func ServeCmd(env *Env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the meeting report HTTP API",
		Long: `Run an HTTP server exposing the report workflow.

POST /api accepts a JSON body with a transcript (or a server-side file path)
and returns the exported report paths with the usage tally. The server's API
key (from $` + EnvOpenAIAPIKey + `) is used for requests that carry none.`,
		Example: `  meeting serve
  meeting serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(env.Stderr, "Serving on %s\n", addr)
			return env.Serve(cmd.Context(), addr, env.Getenv(EnvOpenAIAPIKey), env.AppEnv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "Listen address")

	return cmd
}
