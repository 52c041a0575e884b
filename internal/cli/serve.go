package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	httpserver "meetingrec/internal/http"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the recording dashboard (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), deps)
		},
	}
}

func runServe(ctx context.Context, deps *Dependencies) error {
	a, err := deps.NewApp(deps.Config, deps.Log)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	srv, err := httpserver.NewServer(a)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(ctx)
}
