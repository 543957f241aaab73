package domain

import (
	"time"

	"github.com/google/uuid"
)

// AutomationKind distinguishes which table an automation came from.
type AutomationKind string

const (
	AutomationCommand AutomationKind = "command"
	AutomationEvent   AutomationKind = "event"
)

// Execution records one successfully gated and resolved automation
// firing. Append-only; the gate derives cooldown state from it.
type Execution struct {
	ID           uuid.UUID
	AutomationID uuid.UUID
	Kind         AutomationKind

	// User that triggered the firing, if any. Per-user cooldowns match
	// on this.
	User *TwitchUser

	// Snapshot of the canonical input data at fire time.
	Input EventInput

	CreatedAt time.Time
}

// ExecutionsQuery filters execution history reads.
type ExecutionsQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Offset    int64
	Limit     int64
}
