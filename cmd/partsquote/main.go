package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/data-power-io/partsquote/internal/config"
	"github.com/data-power-io/partsquote/libs/logging"
)

var rootCmd = &cobra.Command{
	Use:          "partsquote",
	Short:        "Parts diagram catalog and repair quote service",
	Long:         `partsquote registers parts on motorcycle parts diagrams and prices repair quotes from them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(exportCmd)

	rootCmd.PersistentFlags().String("config", "", "YAML config file; environment variables override it")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the --config file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) (*logging.ServiceLogger, error) {
	logCfg := cfg.GetLoggingConfig()
	logCfg.Fields = map[string]string{"service": "partsquote"}
	return logging.NewLogger(logCfg)
}
