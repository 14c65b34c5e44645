package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/storage"
	"github.com/thingforge/thingforge/internal/worker"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags
	var backend string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Store a summary of every thing in a catalog backend",
		Long:  "Backends: " + strings.Join(storage.Types, ", ") + ". The configured storage.type is used when --backend is empty.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var res worker.CatalogResult
				if err := ctx.call(c, r, protocol.ExportCatalog{Backend: backend}, &res); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d records in %s (%s)\n", res.Records, res.Backend, res.Location)
				return nil
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&backend, "backend", "", "Catalog backend")
	return cmd
}
