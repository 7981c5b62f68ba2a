package main

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/cinealfa/boleteria/internal/config"
	"github.com/cinealfa/boleteria/internal/database"
	"github.com/cinealfa/boleteria/internal/repository"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Release every expired seat hold once and exit",
	Long: `sweep runs a single pass over the hold table and deletes every
hold whose TTL has elapsed.  The serve command runs the same sweep
periodically; this one-shot form suits cron jobs and operators poking
at a stuck environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		removed, err := repository.NewHoldRepo(db).SweepExpiredTx(ctx, tx, time.Now().UTC())
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		log.Printf("released %d expired hold seat(s)", removed)
		return nil
	},
}
