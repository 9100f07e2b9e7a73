package commands

import (
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/app"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/cycles"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"github.com/spf13/cobra"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Start or end operating cycles for the whole fleet",
}

var cyclesStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Open one cycle per piece",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCycleEvent(cmd, service.EventStartAll)
	},
}

var cyclesEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Close every open cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCycleEvent(cmd, service.EventEndAll)
	},
}

func init() {
	rootCmd.AddCommand(cyclesCmd)
	cyclesCmd.AddCommand(cyclesStartCmd, cyclesEndCmd)
	cyclesCmd.PersistentFlags().String("ts", "", "event time, ISO-8601 (default now)")
}

func runCycleEvent(cmd *cobra.Command, event string) error {
	raw, _ := cmd.Flags().GetString("ts")
	ts := time.Now().UTC()
	if raw != "" {
		parsed, err := models.ParseTimestamp("ts", raw)
		if err != nil {
			return err
		}
		ts = parsed
	}

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

	res, err := service.NewCycleService(cycles.NewTracker(db, logger), nil).Handle(ctx, event, ts)
	if err != nil {
		return err
	}
	switch {
	case res.Created != nil:
		cmd.Printf("cycles created: %d\n", *res.Created)
	case res.Closed != nil:
		cmd.Printf("cycles closed: %d\n", *res.Closed)
	}
	return nil
}
