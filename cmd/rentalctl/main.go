// Command rentalctl runs rental-service maintenance tasks against the
// configured database and Stripe account.
package main

import (
	"fmt"
	"os"

	"github.com/poofware/rental-service/internal/config"
	"github.com/poofware/rental-service/internal/utils"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	utils.InitLogger(config.AppName + "-ctl")

	rootCmd := &cobra.Command{
		Use:     "rentalctl",
		Short:   "Maintenance commands for rental-service",
		Version: Version,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
