package commands

import (
	"github.com/Phaeld/fiap-enterprise-challenge/common/database"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.EnsureSchema(cmd.Context(), db); err != nil {
		return err
	}
	logger.Info("Schema applied")
	return nil
}
