package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thingforge/thingforge/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default settings to the config directory",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(ctx.configDir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", ctx.configDir, err)
			}
			settings, err := config.Load(ctx.configDir)
			if err != nil {
				return err
			}
			if settings.Loaded() && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", settings.Path())
			}
			if err := settings.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", settings.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if _, err := s.Durations(); err != nil {
				return err
			}
			gen, err := s.Generation()
			if err != nil {
				return err
			}
			source := "defaults"
			if s.Loaded() {
				source = s.Path()
			}
			st := s.Storage()
			rows := [][]string{
				{"source", source},
				{"logLevel", s.LogLevel()},
				{"logsDir", s.LogsDir()},
				{"logFormat", s.LogFormat()},
				{"obdGeneration", gen.String()},
				{"subscriberBuffer", strconv.Itoa(s.SubscriberBuffer())},
				{"remote.address", s.Remote().Address},
				{"graylog.enabled", yesNo(s.Graylog().Enabled)},
				{"storage.type", st.Type},
				{"storage.memory.outputDir", st.Memory.OutputDir},
				{"storage.sqlite.dumpPath", st.SQLite.DumpPath},
				{"storage.postgres.dsn", st.Postgres.Host + ":" + st.Postgres.Port + "/" + st.Postgres.Database},
			}
			if ctx.jsonOutput {
				out := make(map[string]string, len(rows))
				for _, r := range rows {
					out[r[0]] = r[1]
				}
				return writeJSON(cmd, out)
			}
			printTable(cmd, []string{"Setting", "Value"}, rows, nil)
			return nil
		},
	}
}
