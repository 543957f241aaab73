package circuitbreaker

import (
	"testing"
	"time"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(3, time.Minute)

	for i := 0; i < 2; i++ {
		cb.RecordFailure("send_chat")
		if err := cb.Allow("send_chat"); err != nil {
			t.Fatalf("breaker opened after %d failures, threshold is 3", i+1)
		}
	}

	cb.RecordFailure("send_chat")
	if err := cb.Allow("send_chat"); err != ErrCircuitOpen {
		t.Errorf("Allow = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_OperationsAreIndependent(t *testing.T) {
	cb := New(1, time.Minute)
	cb.RecordFailure("send_chat")

	if err := cb.Allow("get_emotes"); err != nil {
		t.Errorf("unrelated operation blocked: %v", err)
	}
}

func TestBreaker_HalfOpenProbeAfterCooldown(t *testing.T) {
	cb := New(1, time.Minute)
	now := time.Unix(1000, 0)
	cb.clock = func() time.Time { return now }

	cb.RecordFailure("send_chat")
	if err := cb.Allow("send_chat"); err != ErrCircuitOpen {
		t.Fatalf("Allow = %v, want ErrCircuitOpen", err)
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Allow("send_chat"); err != nil {
		t.Fatalf("probe after cooldown blocked: %v", err)
	}
	// Only one probe until an outcome is recorded.
	if err := cb.Allow("send_chat"); err != ErrCircuitOpen {
		t.Errorf("second probe allowed while half-open")
	}

	cb.RecordSuccess("send_chat")
	if err := cb.Allow("send_chat"); err != nil {
		t.Errorf("closed breaker blocked: %v", err)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(2, time.Minute)
	now := time.Unix(1000, 0)
	cb.clock = func() time.Time { return now }

	cb.RecordFailure("send_chat")
	cb.RecordFailure("send_chat")

	now = now.Add(2 * time.Minute)
	if err := cb.Allow("send_chat"); err != nil {
		t.Fatalf("probe blocked: %v", err)
	}

	cb.RecordFailure("send_chat")
	now = now.Add(30 * time.Second)
	if err := cb.Allow("send_chat"); err != ErrCircuitOpen {
		t.Errorf("breaker closed after failed probe")
	}
}
