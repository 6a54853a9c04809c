package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/export"
	"github.com/data-power-io/partsquote/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every registered part as an Arrow IPC stream",
	Long: `Export reads the saved catalog and writes one Arrow record batch per
model to --output, or to stdout when no file is given.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	st, err := openStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.docs.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}
	if rec == nil {
		rec = store.NewRecord()
	}

	var w io.Writer = cmd.OutOrStdout()
	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	n, err := export.NewExporter(nil, logger.Named("export")).WriteParts(w, &rec.Catalog)
	if err != nil {
		return err
	}
	logger.Info("Export complete", zap.Int("parts", n), zap.String("output", output))
	return nil
}
