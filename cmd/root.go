package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "proxypay",
	Short: "Proxy payments microservice",
	Long:  "A payments microservice for proxy plan purchases, wallet deposits, gateway webhook settlement, and revenue jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
