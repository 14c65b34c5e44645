package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thingforge/thingforge/internal/config"
	"github.com/thingforge/thingforge/internal/logging"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/remote"
	"github.com/thingforge/thingforge/internal/worker"
)

const (
	appName        = "thingforge"
	configFileHint = config.FileName
)

type commandContext struct {
	configDir  string
	logLevel   string
	remoteURL  string
	jsonOutput bool

	settingsOnce sync.Once
	settings     *config.Settings
	settingsErr  error

	logs    *logging.SlogManager
	logger  *slog.Logger
	manager *worker.Manager
}

func newCommandContext() *commandContext {
	return &commandContext{configDir: "."}
}

func (c *commandContext) ensureSettings() (*config.Settings, error) {
	c.settingsOnce.Do(func() {
		c.settings, c.settingsErr = config.Load(c.configDir)
		if c.settingsErr == nil && c.logLevel != "" {
			c.settings.Set("logLevel", c.logLevel)
		}
	})
	return c.settings, c.settingsErr
}

func (c *commandContext) logContext() []slog.Attr {
	if c.manager == nil {
		return nil
	}
	return c.manager.LogContext()
}

// setupLogging sends slog records to stderr and, for long running commands,
// to a session log file. Graylog is added when enabled.
func (c *commandContext) setupLogging(cmd *cobra.Command, withFile bool) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	settings, err := c.ensureSettings()
	if err != nil {
		return nil, err
	}

	m := logging.NewSlogManager()
	opts := logging.Options{
		Level:   settings.LogLevel(),
		Format:  settings.LogFormat(),
		Console: cmd.ErrOrStderr(),
		Context: c.logContext,
	}
	if withFile {
		if err := os.MkdirAll(settings.LogsDir(), 0o755); err != nil {
			return nil, fmt.Errorf("create logs directory: %w", err)
		}
		path := logging.LogFilePath(settings.LogsDir(), appName, time.Now())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		m.Own(f)
		opts.File = f
	}

	var graylogErr error
	if gl := settings.Graylog(); gl.Enabled {
		w, err := logging.OpenGraylog(gl.Address)
		if err != nil {
			graylogErr = err
		} else {
			m.Own(w)
			opts.Graylog = w
		}
	}

	m.Setup(opts)
	c.logs, c.logger = m, m.Logger()
	if graylogErr != nil {
		c.logger.Warn("Graylog sink disabled", "address", settings.Graylog().Address, "error", graylogErr)
	}
	return c.logger, nil
}

func (c *commandContext) closeLogging() {
	if c.logs != nil {
		_ = c.logs.Close()
	}
}

// dispatcherLogger builds the zerolog logger the dispatcher reports through.
// Terminals get the console writer.
func (c *commandContext) dispatcherLogger(w io.Writer) zerolog.Logger {
	level := "info"
	if c.settings != nil {
		level = c.settings.LogLevel()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if isTerminal(w) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "dispatcher").Logger()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// runner executes one request and waits for its result.
type runner interface {
	Do(ctx context.Context, cmd protocol.Command, seen func(protocol.Command)) (protocol.Result, error)
	Close() error
}

// withRunner runs fn against a local engine, or a server when --remote is set.
func (c *commandContext) withRunner(cmd *cobra.Command, fn func(ctx context.Context, r runner) error) error {
	logger, err := c.setupLogging(cmd, false)
	if err != nil {
		return err
	}
	defer c.closeLogging()

	var r runner
	if c.remoteURL != "" {
		client, err := remote.Dial(c.remoteURL, c.settings.Remote().Secret, logger)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", c.remoteURL, err)
		}
		r = client
	} else {
		e, err := newEngine(c.settings, logger, c.dispatcherLogger(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		c.manager = e.manager
		r = e
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()
	return fn(cmd.Context(), r)
}

// call runs one request and decodes its value into out.
func (c *commandContext) call(ctx context.Context, r runner, req protocol.Command, out any) error {
	res, err := r.Do(ctx, req, c.notify)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("%s failed (%s): %s", res.Request, res.ErrorKind, res.Error)
	}
	if out == nil {
		return nil
	}
	return decodeValue(res.Value, out)
}

// notify relays worker log notifications. Local engines already log through
// the same logger, so only remote ones are repeated.
func (c *commandContext) notify(n protocol.Command) {
	if c.remoteURL == "" || c.logger == nil {
		return
	}
	if l, ok := n.(protocol.Log); ok {
		c.logger.Log(context.Background(), slogLevel(l.Level), l.Message, "source", l.Source)
	}
}

func slogLevel(l protocol.Level) slog.Level {
	switch l {
	case protocol.LevelDebug:
		return slog.LevelDebug
	case protocol.LevelInfo:
		return slog.LevelInfo
	case protocol.LevelWarn:
		return slog.LevelWarn
	}
	return slog.LevelError
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
