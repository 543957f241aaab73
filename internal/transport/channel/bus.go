// Package channel provides in-memory buses connecting the producers,
// the dispatcher, and the overlay transport.
package channel

import (
	"context"
	"errors"
	"time"

	"github.com/vtftk/app/internal/metrics"
)

// ErrBufferFull is returned when an emit cannot buffer the value within
// the configured timeout.
var ErrBufferFull = errors.New("bus buffer full")

// Bus is a bounded in-memory channel bus.
type Bus[T any] struct {
	ch          chan T
	emitTimeout time.Duration
	sink        metrics.Sink
}

type Option func(*options)

type options struct {
	emitTimeout time.Duration
	sink        metrics.Sink
}

// WithEmitTimeout bounds how long Emit blocks on a full buffer before
// returning ErrBufferFull. Zero means block until context cancellation.
func WithEmitTimeout(d time.Duration) Option {
	return func(o *options) { o.emitTimeout = d }
}

// WithMetrics reports buffer occupancy and emit failures to the sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(o *options) { o.sink = sink }
}

func NewBus[T any](buffer int, opts ...Option) *Bus[T] {
	o := options{sink: metrics.NewNoopSink()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[T]{
		ch:          make(chan T, buffer),
		emitTimeout: o.emitTimeout,
		sink:        o.sink,
	}
}

// Emit buffers the value, blocking until space is available, the context
// is cancelled, or the emit timeout elapses.
func (b *Bus[T]) Emit(ctx context.Context, value T) error {
	if err := b.emit(ctx, value); err != nil {
		b.sink.EmitError()
		return err
	}
	b.sink.BufferSizeUpdate(len(b.ch))
	return nil
}

func (b *Bus[T]) emit(ctx context.Context, value T) error {
	if b.emitTimeout <= 0 {
		select {
		case b.ch <- value:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(b.emitTimeout)
	defer timer.Stop()

	select {
	case b.ch <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBufferFull
	}
}

// Channel exposes the consumer side of the bus.
func (b *Bus[T]) Channel() <-chan T {
	return b.ch
}

// Close closes the bus. Only the owning producer side may call this;
// a closed inbound bus is how the dispatcher loop terminates cleanly.
func (b *Bus[T]) Close() {
	close(b.ch)
}
