package commands

import (
	"github.com/Phaeld/fiap-enterprise-challenge/internal/app"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Wait for the database, apply the schema and provision the default fleet",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringSlice("sensor-kinds", service.DefaultSensorKinds, "sensor kinds every piece should carry")
}

func runSeed(cmd *cobra.Command, args []string) error {
	kinds, _ := cmd.Flags().GetStringSlice("sensor-kinds")

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

	if err := repository.EnsureSchema(ctx, db); err != nil {
		return err
	}
	res, err := service.NewSeeder(db, logger).EnsureSeed(ctx, service.DefaultFleet, kinds)
	if err != nil {
		return err
	}
	cmd.Printf("pieces created: %d, sensors created: %d\n", res.PiecesCreated, res.SensorsCreated)
	return nil
}
