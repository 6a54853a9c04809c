package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/data-power-io/partsquote/internal/server"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of a running server",
	Long: `Health queries the gRPC health service of a running server and exits
non-zero unless the requested service is SERVING. With --service it checks a
single dependency, e.g. "postgres" or "s3".`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().String("address", "", "server address (default localhost:GRPC_PORT)")
	healthCmd.Flags().String("service", "", "dependency to check; empty checks the server itself")
	healthCmd.Flags().Duration("timeout", 5*time.Second, "overall timeout")
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	address, _ := cmd.Flags().GetString("address")
	if address == "" {
		address = fmt.Sprintf("localhost:%d", cfg.GetInt("GRPC_PORT", 9090))
	}
	service, _ := cmd.Flags().GetString("service")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	check := server.DefaultCheckConfig(address)
	check.Timeout = timeout
	if service != "" {
		check.Service = server.ServicePrefix + service
	}

	if err := server.CheckHealth(cmd.Context(), check, logger.Named("health")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: SERVING\n", address)
	return nil
}
