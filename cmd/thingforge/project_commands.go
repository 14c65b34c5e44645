package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thingforge/thingforge/internal/project"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/thing"
)

// projectFlags select the files a command opens.
type projectFlags struct {
	sidecar  string
	metadata string
	sprites  string
	version  uint16
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sidecar, "project", "", "Project sidecar (project.toml)")
	cmd.Flags().StringVar(&f.metadata, "dat", "", "Metadata file")
	cmd.Flags().StringVar(&f.sprites, "spr", "", "Sprite file")
	cmd.Flags().Uint16Var(&f.version, "client", 0, "Client version, detected from the file signatures when omitted")
}

func (f *projectFlags) request() protocol.LoadProject {
	return protocol.LoadProject{
		Sidecar:      f.sidecar,
		MetadataFile: f.metadata,
		SpritesFile:  f.sprites,
		Version:      f.version,
	}
}

// load opens the selected project and returns its summary.
func (c *commandContext) load(ctx context.Context, r runner, f *projectFlags) (project.Summary, error) {
	var sum project.Summary
	err := c.call(ctx, r, f.request(), &sum)
	return sum, err
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var version uint16

	cmd := &cobra.Command{
		Use:   "create <dir>",
		Short: "Write an empty project with one blank thing per category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if err := ctx.call(c, r, protocol.CreateProject{Dir: args[0], Version: version}, nil); err != nil {
					return err
				}
				var sum project.Summary
				if err := ctx.call(c, r, protocol.CompileProject{}, &sum); err != nil {
					return err
				}
				return ctx.printSummary(cmd, sum)
			})
		},
	}
	cmd.Flags().Uint16Var(&version, "client", 0, "Client version")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the client version and counts of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				sum, err := ctx.load(c, r, &pf)
				if err != nil {
					return err
				}
				return ctx.printSummary(cmd, sum)
			})
		},
	}
	pf.register(cmd)
	return cmd
}

func (c *commandContext) printSummary(cmd *cobra.Command, sum project.Summary) error {
	if c.jsonOutput {
		return writeJSON(cmd, sum)
	}
	rows := [][]string{
		{"Directory", sum.Dir},
		{"Metadata", sum.MetadataFile},
		{"Sprites file", sum.SpritesFile},
		{"Client", strconv.Itoa(int(sum.Version))},
		{"Extended", yesNo(sum.Features.Extended)},
		{"Transparency", yesNo(sum.Features.Transparency)},
		{"Improved animations", yesNo(sum.Features.ImprovedAnimations)},
		{"Frame groups", yesNo(sum.Features.FrameGroups)},
		{"Items", strconv.Itoa(sum.Items)},
		{"Outfits", strconv.Itoa(sum.Outfits)},
		{"Effects", strconv.Itoa(sum.Effects)},
		{"Missiles", strconv.Itoa(sum.Missiles)},
		{"Sprites", strconv.FormatUint(uint64(sum.Sprites), 10)},
	}
	printTable(cmd, []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
	return nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags
	var first, last uint32

	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List the things of one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := thing.ParseCategory(args[0])
			if err != nil {
				return err
			}
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var list []project.ThingSummary
				if err := ctx.call(c, r, protocol.ListThings{Category: category, First: first, Last: last}, &list); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, list)
				}
				rows := make([][]string, 0, len(list))
				for _, t := range list {
					props := make([]string, 0, len(t.Properties))
					for _, p := range t.Properties {
						props = append(props, p.String())
					}
					rows = append(rows, []string{
						strconv.FormatUint(uint64(t.ID), 10),
						strconv.Itoa(t.Groups),
						fmt.Sprintf("%dx%d", t.Width, t.Height),
						strconv.Itoa(int(t.Frames)),
						strconv.Itoa(t.Sprites),
						strings.Join(props, ","),
					})
				}
				printTable(cmd, []string{"ID", "Groups", "Size", "Frames", "Sprites", "Properties"}, rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft})
				return nil
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().Uint32Var(&first, "first", 0, "First id")
	cmd.Flags().Uint32Var(&last, "last", 0, "Last id")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags

	cmd := &cobra.Command{
		Use:   "show <category> <id>",
		Short: "Print one thing as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id, err := parseThingRef(args[0], args[1])
			if err != nil {
				return err
			}
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var t thing.Thing
				if err := ctx.call(c, r, protocol.GetThing{Category: category, ID: id}, &t); err != nil {
					return err
				}
				return writeJSON(cmd, t)
			})
		},
	}
	pf.register(cmd)
	return cmd
}

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var pf projectFlags
	var out string

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Drop unused and empty sprites and compile the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(c context.Context, r runner) error {
				if _, err := ctx.load(c, r, &pf); err != nil {
					return err
				}
				var res project.OptimizeResult
				if err := ctx.call(c, r, protocol.OptimizeSprites{}, &res); err != nil {
					return err
				}
				if err := ctx.call(c, r, protocol.CompileProject{Dir: out}, nil); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d sprites, %d -> %d\n", res.Removed, res.Before, res.After)
				return nil
			})
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Compile into this directory instead of in place")
	return cmd
}

func parseThingRef(category, id string) (thing.Category, uint32, error) {
	c, err := thing.ParseCategory(category)
	if err != nil {
		return 0, 0, err
	}
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return c, uint32(n), nil
}
