package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thingforge/thingforge/internal/events"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/protocol"
	"github.com/thingforge/thingforge/internal/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HandlerFunc processes a command and returns a result. Returning an Async
// value hands the remaining work to a goroutine so the next command can
// start.
type HandlerFunc func(ctx context.Context, cmd protocol.Command) (any, error)

// Async is work a handler defers past its own return. Its result becomes the
// request's result.
type Async func(ctx context.Context) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type request struct {
	id  string
	cmd protocol.Command
}

// PanicError carries a recovered handler panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// ErrStopped fails requests still queued when Run returns.
var ErrStopped = errors.New("dispatcher stopped")

// Dispatcher runs commands one at a time in submission order and reports
// every outcome as notifications.
type Dispatcher struct {
	handlers  map[protocol.Kind]HandlerFunc
	logger    Logger
	publisher events.Publisher
	inbox     *queue.Queue[request]

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	async   sync.WaitGroup

	// OTEL metrics
	inboxSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher that reports to publisher.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger, publisher events.Publisher) (*Dispatcher, error) {
	if publisher == nil {
		publisher = events.Discard
	}
	d := &Dispatcher{
		handlers:  make(map[protocol.Kind]HandlerFunc),
		logger:    logger,
		publisher: publisher,
		inbox:     queue.New[request](),
		cancels:   make(map[string]context.CancelFunc),
	}

	m := meter()

	var err error

	d.inboxSize, err = m.Int64ObservableGauge(
		"dispatcher.inbox.size",
		metric.WithDescription("Commands waiting for the worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inbox size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.inboxSize, int64(d.inbox.Len()))
			return nil
		},
		d.inboxSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering inbox callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.commands.processed",
		metric.WithDescription("Total commands processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.commands.failed",
		metric.WithDescription("Total commands that ended in an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Handle registers a typed handler for the kind of C.
func Handle[C protocol.Command](d *Dispatcher, h func(context.Context, C) (any, error), opts ...Option) {
	var zero C
	kind := zero.Kind()
	d.Register(kind, func(ctx context.Context, cmd protocol.Command) (any, error) {
		c, ok := cmd.(C)
		if !ok {
			return nil, fault.Protocolf("handler for %s received %T", kind, cmd)
		}
		return h(ctx, c)
	}, opts...)
}

// Register adds a handler for the given kind with optional configuration.
func (d *Dispatcher) Register(kind protocol.Kind, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}
	d.handlers[kind] = handler
}

// HasHandler returns true if a handler is registered for the kind.
func (d *Dispatcher) HasHandler(kind protocol.Kind) bool {
	_, ok := d.handlers[kind]
	return ok
}

// Submit queues cmd and returns its request id. It never blocks.
func (d *Dispatcher) Submit(cmd protocol.Command) string {
	return d.SubmitWithID(uuid.NewString(), cmd)
}

// SubmitWithID queues cmd under a caller-chosen request id. A Cancel command
// takes effect immediately instead of waiting its turn.
func (d *Dispatcher) SubmitWithID(id string, cmd protocol.Command) string {
	if id == "" {
		id = uuid.NewString()
	}
	if c, ok := cmd.(protocol.Cancel); ok {
		n := d.CancelRequest(c.RequestID)
		d.publisher.Publish(protocol.Result{RequestID: id, Request: protocol.KindCancel, Value: n})
		return id
	}
	d.inbox.Push(request{id: id, cmd: cmd})
	return id
}

// Cancel aborts every operation in flight and returns how many there were.
func (d *Dispatcher) Cancel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cancel := range d.cancels {
		cancel()
	}
	return len(d.cancels)
}

// CancelRequest aborts the operation started by id and reports whether it
// was in flight. An empty id cancels everything, like Cancel, and the result
// is the number of operations aborted.
func (d *Dispatcher) CancelRequest(id string) int {
	if id == "" {
		return d.Cancel()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cancel, ok := d.cancels[id]
	if !ok {
		return 0
	}
	cancel()
	return 1
}

// Pending returns the number of queued commands.
func (d *Dispatcher) Pending() int {
	return d.inbox.Len()
}

// Run consumes the inbox until ctx is done. Queued commands left behind are
// answered with ErrStopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer func() {
		d.async.Wait()
		for _, req := range d.inbox.GetAndEmpty() {
			d.publisher.Publish(protocol.Result{
				RequestID: req.id,
				Request:   req.cmd.Kind(),
				Error:     ErrStopped.Error(),
				ErrorKind: fault.Name(ErrStopped),
			})
		}
	}()

	for ctx.Err() == nil {
		req, err := d.inbox.Wait(ctx)
		if err != nil {
			return nil
		}
		d.process(ctx, req)
	}
	return nil
}

func (d *Dispatcher) track(id string, cancel context.CancelFunc) {
	d.mu.Lock()
	d.cancels[id] = cancel
	d.mu.Unlock()
}

func (d *Dispatcher) untrack(id string) {
	d.mu.Lock()
	if cancel, ok := d.cancels[id]; ok {
		cancel()
		delete(d.cancels, id)
	}
	d.mu.Unlock()
}

func (d *Dispatcher) process(ctx context.Context, req request) {
	kind := req.cmd.Kind()
	h, ok := d.handlers[kind]
	if !ok {
		name := kind.String()
		if u, isUnknown := req.cmd.(protocol.Unrecognized); isUnknown {
			name = u.Name
		}
		d.finish(req, nil, fault.Protocolf("no handler for command kind %q", name))
		return
	}

	opCtx, cancel := context.WithCancel(ctx)
	d.track(req.id, cancel)

	value, err := invoke(func() (any, error) { return h(opCtx, req.cmd) })
	if async, isAsync := value.(Async); isAsync && err == nil {
		d.async.Add(1)
		go func() {
			defer d.async.Done()
			v, err := invoke(func() (any, error) { return async(opCtx) })
			d.untrack(req.id)
			d.finish(req, v, err)
		}()
		return
	}

	d.untrack(req.id)
	d.finish(req, value, err)
}

func invoke(fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn()
}

func (d *Dispatcher) finish(req request, value any, err error) {
	kind := req.cmd.Kind()
	attrs := metric.WithAttributes(attribute.String("command", kind.String()))
	d.processed.Add(context.Background(), 1, attrs)

	if err == nil {
		d.publisher.Publish(protocol.Result{RequestID: req.id, Request: kind, Value: value})
		return
	}

	d.failed.Add(context.Background(), 1, attrs)
	d.logger.Error("command failed", "command", kind.String(), "request", req.id, "error", err)

	entry := protocol.Log{
		Level:   protocol.LevelError,
		Message: fmt.Sprintf("%s: %v", kind, err),
		Source:  fault.Name(err),
	}
	var panicked *PanicError
	switch {
	case errors.As(err, &panicked):
		entry.Level = protocol.LevelFatal
		entry.Stack = panicked.Stack
		entry.Source = "panic"
	case errors.Is(err, context.Canceled):
		entry.Source = "cancelled"
	}
	d.publisher.Publish(entry)
	d.publisher.Publish(protocol.Result{
		RequestID: req.id,
		Request:   kind,
		Error:     err.Error(),
		ErrorKind: entry.Source,
	})
}

func (d *Dispatcher) withLogging(kind protocol.Kind, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, cmd protocol.Command) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", kind.String())

		result, err := h(ctx, cmd)

		d.logger.Debug("command complete", "command", kind.String(), "duration", time.Since(start), "failed", err != nil)

		return result, err
	}
}
