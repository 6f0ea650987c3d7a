package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/h4food/foodmarket/internal/domain/outbox"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentOutbox    = "outbox"
	defaultQueueSize   = 1024
	defaultConcurrency = 8
	handlerTimeout     = 30 * time.Second
)

var ErrClosed = errors.New("outbox: bus closed")

// Bus is an in-memory event bus. It is not durable: events still queued when
// the process dies are lost, which is acceptable for alerts and relays that
// tolerate at-most-once delivery.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	closed      bool
	queue       chan queued
	done        chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	concurrency int
	log         observability.Logger
}

var _ domoutbox.Bus = (*Bus)(nil)

// queued keeps the publisher's span so handlers continue the same trace.
type queued struct {
	event domoutbox.Event
	span  trace.SpanContext
}

type Option func(*Bus)

func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan queued, n)
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func NewBus(logger observability.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	b := &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan queued, defaultQueueSize),
		done:        make(chan struct{}),
		concurrency: defaultConcurrency,
		log:         logger.With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatch loop. Handlers receive a context detached from
// ctx's cancellation but carrying its values.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events, drains the queue and waits for the dispatch loop to
// finish or ctx to expire.
func (b *Bus) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
	})
	// Never started: nothing to drain.
	b.startOnce.Do(func() { close(b.done) })
	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
	return nil
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- queued{event: e, span: trace.SpanContextFromContext(ctx)}:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.F("error", ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for q := range b.queue {
		fctx := ctx
		if q.span.IsValid() {
			fctx = trace.ContextWithRemoteSpanContext(ctx, q.span)
		}
		b.fanout(fctx, q.event)
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	logger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			hctx = logctx.With(hctx, logger)
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error", observability.F("error", err.Error()))
			}
		}()
	}

	wg.Wait()
	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}
