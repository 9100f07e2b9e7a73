package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/app"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build the historical feature dataset as JSON Lines",
	Long: `dataset rebuilds one row per reading of every piece with as-of usage,
failure labels, rolling features and the future-failure horizon label. Rows are
scored by the failure model unless --no-score is given or the models cannot load.`,
	RunE: runDataset,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	datasetCmd.Flags().Bool("no-score", false, "skip failure scoring")
}

func runDataset(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	noScore, _ := cmd.Flags().GetBool("no-score")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	db, err := app.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var predictor service.Predictor
	if !noScore {
		// OpenPredictor logs the cause; rows stay unscored on failure.
		predictor, _ = app.OpenPredictor(ctx, cfg, logger)
	}

	rows, err := app.NewDatasetService(db, cfg, predictor, logger).Build(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write dataset row: %w", err)
		}
	}
	logger.Info("Dataset written", zap.Int("rows", len(rows)), zap.Bool("scored", predictor != nil))
	return nil
}
