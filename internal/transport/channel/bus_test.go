package channel

import (
	"context"
	"testing"
	"time"

	"github.com/vtftk/app/internal/domain"
	"github.com/vtftk/app/internal/metrics"
)

type countingSink struct {
	*metrics.NoopSink
	emitErrors int
	bufferSize int
}

func (s *countingSink) EmitError()             { s.emitErrors++ }
func (s *countingSink) BufferSizeUpdate(n int) { s.bufferSize = n }

func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus[domain.Occurrence](10)
	occ := domain.Occurrence{Kind: domain.OccurrenceFollow, User: &domain.TwitchUser{ID: "12"}}

	ctx := context.Background()
	if err := bus.Emit(ctx, occ); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	select {
	case got := <-bus.Channel():
		if got.Kind != occ.Kind {
			t.Errorf("Kind = %v, want %v", got.Kind, occ.Kind)
		}
		if got.User.ID != "12" {
			t.Errorf("User.ID = %v, want 12", got.User.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for occurrence on channel")
	}
}

func TestBus_BufferFull(t *testing.T) {
	bus := NewBus[domain.OverlayMessage](1, WithEmitTimeout(50*time.Millisecond))

	ctx := context.Background()

	if err := bus.Emit(ctx, domain.OverlayMessage{Type: domain.OverlayPlaySound}); err != nil {
		t.Fatalf("first Emit failed: %v", err)
	}

	err := bus.Emit(ctx, domain.OverlayMessage{Type: domain.OverlayPlaySound})
	if err != ErrBufferFull {
		t.Errorf("expected ErrBufferFull, got: %v", err)
	}
}

func TestBus_ContextCancelled(t *testing.T) {
	bus := NewBus[domain.Occurrence](1)

	if err := bus.Emit(context.Background(), domain.Occurrence{}); err != nil {
		t.Fatalf("first Emit failed: %v", err)
	}

	cancelledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := bus.Emit(cancelledCtx, domain.Occurrence{}); err != context.Canceled {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestBus_MetricsSink(t *testing.T) {
	sink := &countingSink{NoopSink: metrics.NewNoopSink()}
	bus := NewBus[domain.Occurrence](1, WithEmitTimeout(50*time.Millisecond), WithMetrics(sink))

	ctx := context.Background()

	if err := bus.Emit(ctx, domain.Occurrence{Kind: domain.OccurrenceFollow}); err != nil {
		t.Fatalf("first Emit failed: %v", err)
	}
	if sink.bufferSize != 1 {
		t.Errorf("bufferSize = %d, want 1", sink.bufferSize)
	}
	if sink.emitErrors != 0 {
		t.Errorf("emitErrors = %d, want 0", sink.emitErrors)
	}

	if err := bus.Emit(ctx, domain.Occurrence{Kind: domain.OccurrenceFollow}); err != ErrBufferFull {
		t.Fatalf("expected ErrBufferFull, got: %v", err)
	}
	if sink.emitErrors != 1 {
		t.Errorf("emitErrors = %d, want 1", sink.emitErrors)
	}
}

func TestBus_CloseTerminatesConsumer(t *testing.T) {
	bus := NewBus[domain.Occurrence](1)
	bus.Close()

	if _, ok := <-bus.Channel(); ok {
		t.Error("expected closed channel")
	}
}
