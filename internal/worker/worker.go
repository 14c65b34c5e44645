// Package worker binds protocol requests to the project store. Every handler
// runs on the dispatcher's single worker goroutine, which owns the store.
package worker

import (
	"log/slog"
	"sync/atomic"

	"github.com/thingforge/thingforge/internal/config"
	"github.com/thingforge/thingforge/internal/events"
	"github.com/thingforge/thingforge/internal/imaging"
	"github.com/thingforge/thingforge/internal/project"
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Store     *project.Store
	Settings  *config.Settings
	Publisher events.Publisher
	Logger    *slog.Logger
	Encoder   imaging.Encoder
}

// Manager turns requests into store calls.
type Manager struct {
	deps Dependencies

	// client describes the open project for log records.
	client atomic.Value
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Settings == nil {
		deps.Settings = config.Defaults()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Encoder == nil {
		deps.Encoder = imaging.PNG{}
	}
	m := &Manager{deps: deps}
	m.client.Store("")
	return m
}

// Client describes the open project's client version, or "" when none is
// open. It is safe to call from any goroutine.
func (m *Manager) Client() string {
	v, _ := m.client.Load().(string)
	return v
}

// LogContext plugs Client into logging.Options.Context.
func (m *Manager) LogContext() []slog.Attr {
	if v := m.Client(); v != "" {
		return []slog.Attr{slog.String("client", v)}
	}
	return nil
}

func (m *Manager) track() {
	p, err := m.deps.Store.Project()
	if err != nil {
		m.client.Store("")
		return
	}
	m.client.Store(p.Version.String())
}
