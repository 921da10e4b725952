// Command catalog runs the catalog item HTTP service.
//
//	catalog serve     start the HTTP server
//	catalog migrate   bring the database schema up to date
//
// Configuration comes from CATALOG_ environment variables (and .env).
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Catalog item store service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}
