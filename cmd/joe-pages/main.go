package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "joe-pages",
		Short:         "A self-hosted link-in-bio service",
		Long:          "joe-pages serves one public page per address, with live address availability checks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./joe-pages.yaml if present)")

	rootCmd.AddCommand(newServeCmd(&configFile))
	rootCmd.AddCommand(newMigrateCmd(&configFile))
	rootCmd.AddCommand(newPageCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
