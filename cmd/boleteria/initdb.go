package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/cinealfa/boleteria/internal/config"
	"github.com/cinealfa/boleteria/internal/database"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the seat-hold, reservation and transaction tables",
	Long: `initdb applies the schema for the configured driver and exits.
Every statement is idempotent, so re-running it against an existing
database is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.EnsureSchema(cmd.Context(), db, cfg.DBDriver); err != nil {
			return err
		}
		log.Printf("schema ready (driver=%s)", cfg.DBDriver)
		return nil
	},
}
