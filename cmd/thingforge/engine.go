package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/thingforge/thingforge/internal/config"
	"github.com/thingforge/thingforge/internal/dispatcher"
	"github.com/thingforge/thingforge/internal/events"
	"github.com/thingforge/thingforge/internal/logging"
	"github.com/thingforge/thingforge/internal/project"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/worker"
)

// engine is the in-process worker: a store owned by one dispatcher
// goroutine, reporting on a bus.
type engine struct {
	bus        *events.Bus
	store      *project.Store
	dispatcher *dispatcher.Dispatcher
	manager    *worker.Manager

	cancel context.CancelFunc
	done   chan error
}

func newEngine(settings *config.Settings, logger *slog.Logger, zl zerolog.Logger) (*engine, error) {
	durations, err := settings.Durations()
	if err != nil {
		return nil, err
	}
	gen, err := settings.Generation()
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(settings.SubscriberBuffer())
	store := project.NewStore(project.Options{
		Durations:  durations,
		Publisher:  bus,
		Logger:     logger,
		Generation: gen,
	})
	d, err := dispatcher.New(logging.NewDispatcherLogger(zl), bus)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	m := worker.NewManager(worker.Dependencies{
		Store:     store,
		Settings:  settings,
		Publisher: bus,
		Logger:    logger,
	})
	m.RegisterHandlers(d)

	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		bus:        bus,
		store:      store,
		dispatcher: d,
		manager:    m,
		cancel:     cancel,
		done:       make(chan error, 1),
	}
	go func() { e.done <- d.Run(ctx) }()
	return e, nil
}

// Do submits cmd and waits for its result, passing every other notification
// to seen.
func (e *engine) Do(ctx context.Context, cmd protocol.Command, seen func(protocol.Command)) (protocol.Result, error) {
	sub := e.bus.Subscribe()
	defer sub.Close()

	id := e.dispatcher.Submit(cmd)
	for {
		select {
		case <-ctx.Done():
			e.dispatcher.CancelRequest(id)
			return protocol.Result{}, ctx.Err()
		case n, ok := <-sub.C():
			if !ok {
				return protocol.Result{}, dispatcher.ErrStopped
			}
			if res, isResult := n.(protocol.Result); isResult && res.RequestID == id {
				return res, nil
			}
			if seen != nil {
				seen(n)
			}
		}
	}
}

// Close stops the dispatcher and then unloads the project from this
// goroutine, which owns the store once Run has returned.
func (e *engine) Close() error {
	e.cancel()
	runErr := <-e.done
	err := errors.Join(runErr, e.store.Close())
	e.bus.Close()
	return err
}
