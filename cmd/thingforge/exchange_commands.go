package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thingforge/thingforge/internal/project"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/worker"
)

func newExportThingCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags
	var generation int

	cmd := &cobra.Command{
		Use:   "export-thing <category> <id> <file.obd>",
		Short: "Write one thing and its sprites to an exchange container",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id, err := parseThingRef(args[0], args[1])
			if err != nil {
				return err
			}
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var res worker.PathResult
				req := protocol.ExportThing{Category: category, ID: id, Path: args[2], Generation: generation}
				if err := ctx.call(c, r, req, &res); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s %d to %s\n", category, id, res.Path)
				return nil
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&generation, "generation", 0, "Container generation 1, 2 or 3 (defaults to obdGeneration)")
	return cmd
}

func newImportThingCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags
	var replace uint32
	var out string

	cmd := &cobra.Command{
		Use:   "import-thing <file.obd>",
		Short: "Add a thing from an exchange container and compile the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var res project.ImportResult
				if err := ctx.call(c, r, protocol.ImportThing{Path: args[0], ReplaceID: replace}, &res); err != nil {
					return err
				}
				if err := ctx.call(c, r, protocol.CompileProject{Dir: out}, nil); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s %d with %d sprites\n", res.Thing.Category, res.Thing.ID, len(res.Sprites))
				if len(res.Dropped) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Dropped unsupported properties: %s\n", strings.Join(res.Dropped, ", "))
				}
				return nil
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().Uint32Var(&replace, "replace", 0, "Overwrite this id instead of appending")
	cmd.Flags().StringVar(&out, "out", "", "Compile into this directory instead of in place")
	return cmd
}

func newFindSpritesCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags
	var unused, empty bool

	cmd := &cobra.Command{
		Use:   "find-sprites",
		Short: "List unused or empty sprite ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !unused && !empty {
				unused = true
			}
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var ids []uint32
				if err := ctx.call(c, r, protocol.FindSprites{Unused: unused, Empty: empty}, &ids); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, ids)
				}
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					rows = append(rows, []string{strconv.FormatUint(uint64(id), 10)})
				}
				printTable(cmd, []string{"Sprite"}, rows, []columnAlignment{alignRight})
				return nil
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().BoolVar(&unused, "unused", false, "Sprites no thing references")
	cmd.Flags().BoolVar(&empty, "empty", false, "Sprites without a visible pixel")
	return cmd
}

func newExportSpritesCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags

	cmd := &cobra.Command{
		Use:   "export-sprites <dir> <id>...",
		Short: "Write sprites as PNG images",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint32, 0, len(args)-1)
			for _, arg := range args[1:] {
				n, err := strconv.ParseUint(arg, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid sprite id %q: %w", arg, err)
				}
				ids = append(ids, uint32(n))
			}
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var res worker.SpriteImages
				if err := ctx.call(c, r, protocol.ExportSpriteImage{IDs: ids, Dir: args[0]}, &res); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, res)
				}
				for _, p := range res.Paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			})
		},
	}
	pf.register(cmd)
	return cmd
}
