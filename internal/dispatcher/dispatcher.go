// Package dispatcher routes host commands (ticks, control clicks, chart
// clicks) to their handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/seatrace/trackdash/internal/dispatcher"

// Commands understood by the host.
const (
	CmdTick        = "playback.tick"
	CmdToggle      = "playback.toggle"
	CmdDrift       = "playback.drift"
	CmdVessels     = "playback.vessels"
	CmdSpeed       = "playback.speed"
	CmdReset       = "playback.reset"
	CmdCrossFilter = "crossfilter.click"
)

// ErrBusy is returned when an event is dropped because the handler is still
// running or its queue is full.
var ErrBusy = errors.New("handler busy")

// Event is one command addressed to a session.
type Event struct {
	Command   string
	Session   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	async      bool
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.async = true
		c.bufferSize = size
	}
}

// DropWhileBusy makes the handler async with no queue: an event is accepted
// only when the previous one has finished, otherwise it is dropped.
func DropWhileBusy() Option {
	return func(c *config) {
		c.async = true
		c.bufferSize = 0
	}
}

// Blocking makes an async handler block when it cannot accept instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram

	mu      sync.RWMutex
	buffers map[string]chan Event
	wg      sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"trackdash.dispatcher.queue.size",
		metric.WithDescription("Current number of events waiting per command"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"trackdash.dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"trackdash.dispatcher.events.dropped",
		metric.WithDescription("Total events dropped because the handler was busy"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.duration, err = m.Float64Histogram(
		"trackdash.dispatcher.handler.duration",
		metric.WithDescription("Time spent in a handler"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Handlers must be registered before events are dispatched.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	handler = d.observe(command, handler)

	if cfg.async {
		handler = d.withQueue(command, cfg.bufferSize, cfg.blocking, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Close stops the async workers and waits for queued events to finish.
// Dispatching to an async handler after Close panics.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	for cmd, buf := range d.buffers {
		close(buf)
		delete(d.buffers, cmd)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// observe counts handled events and records their duration, split by
// command and outcome.
func (d *Dispatcher) observe(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)
	return func(e Event) (any, error) {
		start := time.Now()
		result, err := h(e)

		ctx := context.Background()
		attrs := metric.WithAttributes(cmdAttr, attribute.Bool("error", err != nil))
		d.processed.Add(ctx, 1, attrs)
		d.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		return result, err
	}
}

func (d *Dispatcher) withQueue(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	queue := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = queue
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range queue {
			if _, err := h(e); err != nil {
				d.logger.Error("async event failed", "command", command, "error", err)
			}
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			queue <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case queue <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("%w: %s", ErrBusy, command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "session", e.Session, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "session", e.Session, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "session", e.Session, "duration", time.Since(start))
		}

		return result, err
	}
}
