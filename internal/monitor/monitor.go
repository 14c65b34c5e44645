// Package monitor writes a periodic status file for a running server.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thingforge/thingforge/internal/fileutil"
)

// Status is one snapshot of the server.
type Status struct {
	Time        time.Time `json:"time"`
	Uptime      string    `json:"uptime"`
	Client      string    `json:"client,omitempty"`
	Pending     int       `json:"pending"`
	Subscribers int       `json:"subscribers"`
	Dropped     int64     `json:"droppedProgress"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Pending     func() int
	Subscribers func() int
	Dropped     func() int64
	Client      func() string
	Path        string
	Interval    time.Duration
	Logger      *slog.Logger
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	started   time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	stopped   chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps, started: time.Now()}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status collects the current snapshot. Unset probes report zero.
func (s *Service) Status() Status {
	st := Status{
		Time:   time.Now().UTC(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	if s.deps.Pending != nil {
		st.Pending = s.deps.Pending()
	}
	if s.deps.Subscribers != nil {
		st.Subscribers = s.deps.Subscribers()
	}
	if s.deps.Dropped != nil {
		st.Dropped = s.deps.Dropped()
	}
	if s.deps.Client != nil {
		st.Client = s.deps.Client()
	}
	return st
}

// WriteStatus replaces the status file with the current snapshot.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.Status(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return fileutil.WriteFileAtomic(s.deps.Path, append(data, '\n'), 0o644)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.deps.Path == "" {
		return fmt.Errorf("status file path is required")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})

	go s.loop(s.stopChan, s.stopped)
	return nil
}

func (s *Service) loop(stop, stopped chan struct{}) {
	defer close(stopped)
	s.deps.Logger.Debug("Starting status monitor", "path", s.deps.Path, "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.WriteStatus(); err != nil {
				s.deps.Logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	stopped := s.stopped
	s.mu.Unlock()
	<-stopped
}
