package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boleteria",
	Short: "Seat inventory and payment core for the cinema box office",
	Long: `boleteria runs the seat-hold, reservation and payment-transaction
core of the ticket office.  It serves the checkout HTTP API, sweeps
expired holds and manages the database schema.`,
}

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	rootCmd.AddCommand(serveCmd, initdbCmd, sweepCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
