package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cooldown rate-limits an automation. PerUser scopes the window to each
// distinct triggering user; otherwise one window is shared by everyone.
type Cooldown struct {
	Enabled    bool  `json:"enabled"`
	DurationMs int64 `json:"duration"`
	PerUser    bool  `json:"per_user"`
}

// CommandOutcomeType discriminates the outcome of a chat command.
type CommandOutcomeType string

const (
	CommandOutcomeTemplate CommandOutcomeType = "template"
	CommandOutcomeScript   CommandOutcomeType = "script"
)

// CommandOutcome is either a chat reply template or a script.
type CommandOutcome struct {
	Type     CommandOutcomeType `json:"type"`
	Template string             `json:"template,omitempty"`
	Script   string             `json:"script,omitempty"`
}

// Command is a chat-command automation. The trigger phrase and every
// alias match case-insensitively against the first token of a message.
type Command struct {
	ID          uuid.UUID
	Enabled     bool
	Name        string
	Command     string
	Aliases     []string
	Outcome     CommandOutcome
	Cooldown    Cooldown
	RequireRole MinimumRole
	Order       int64
	CreatedAt   time.Time
}

// EventConfig bundles everything needed to match and fire an event
// automation.
type EventConfig struct {
	Trigger     Trigger     `json:"trigger"`
	Outcome     Outcome     `json:"outcome"`
	Cooldown    Cooldown    `json:"cooldown"`
	RequireRole MinimumRole `json:"require_role"`

	// Delay in milliseconds before the outcome is produced.
	OutcomeDelayMs int64 `json:"outcome_delay"`
}

// Event is an automation driven by a platform event or a timer.
type Event struct {
	ID        uuid.UUID
	Enabled   bool
	Name      string
	Config    EventConfig
	Order     int64
	CreatedAt time.Time
}
