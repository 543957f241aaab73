package api

import (
	"time"

	"github.com/vtftk/app/internal/domain"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EventRequest creates or replaces an event automation.
type EventRequest struct {
	Name    string             `json:"name"`
	Enabled bool               `json:"enabled"`
	Config  domain.EventConfig `json:"config"`
	Order   int64              `json:"order"`
}

type EventResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Enabled   bool               `json:"enabled"`
	Config    domain.EventConfig `json:"config"`
	Order     int64              `json:"order"`
	CreatedAt string             `json:"created_at"`
}

type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
}

// CommandRequest creates or replaces a chat command.
type CommandRequest struct {
	Name        string                `json:"name"`
	Enabled     bool                  `json:"enabled"`
	Command     string                `json:"command"`
	Aliases     []string              `json:"aliases,omitempty"`
	Outcome     domain.CommandOutcome `json:"outcome"`
	Cooldown    domain.Cooldown       `json:"cooldown"`
	RequireRole domain.MinimumRole    `json:"require_role"`
	Order       int64                 `json:"order"`
}

type CommandResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Enabled     bool                  `json:"enabled"`
	Command     string                `json:"command"`
	Aliases     []string              `json:"aliases,omitempty"`
	Outcome     domain.CommandOutcome `json:"outcome"`
	Cooldown    domain.Cooldown       `json:"cooldown"`
	RequireRole domain.MinimumRole    `json:"require_role"`
	Order       int64                 `json:"order"`
	CreatedAt   string                `json:"created_at"`
}

type ListCommandsResponse struct {
	Commands []CommandResponse `json:"commands"`
}

type ExecutionResponse struct {
	ID           string             `json:"id"`
	AutomationID string             `json:"automation_id"`
	Kind         string             `json:"kind"`
	User         *domain.TwitchUser `json:"user,omitempty"`
	Input        domain.EventInput  `json:"input"`
	CreatedAt    string             `json:"created_at"`
}

type ListExecutionsResponse struct {
	Executions []ExecutionResponse `json:"executions"`
}

// ItemRequest creates a throwable item.
type ItemRequest struct {
	Name           string           `json:"name"`
	Image          domain.ItemImage `json:"image"`
	ImpactSoundIDs []string         `json:"impact_sound_ids,omitempty"`
	Order          int64            `json:"order"`
}

type ListItemsResponse struct {
	Items []domain.Item `json:"items"`
}

// SoundRequest creates a sound asset.
type SoundRequest struct {
	Name   string  `json:"name"`
	Src    string  `json:"src"`
	Volume float64 `json:"volume"`
	Order  int64   `json:"order"`
}

type ListSoundsResponse struct {
	Sounds []domain.Sound `json:"sounds"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
