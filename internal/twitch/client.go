// Package twitch defines the platform-client surface consumed by the
// dispatch core plus the caching and chat-send layers built on it.
package twitch

import (
	"context"

	"github.com/vtftk/app/internal/domain"
)

// Emote is a channel emote usable as a throwable.
type Emote struct {
	ID       string
	Name     string
	ImageURL string
}

// Client is the upstream platform API. Implementations own their own
// authentication, transport, and timeouts.
type Client interface {
	// BroadcasterID returns the authenticated broadcaster's user id, or
	// an empty string when not authenticated.
	BroadcasterID(ctx context.Context) (string, error)

	// IsFollower reports whether the user follows the channel.
	IsFollower(ctx context.Context, userID string) (bool, error)

	GetModeratorList(ctx context.Context) ([]domain.TwitchUser, error)
	GetVipList(ctx context.Context) ([]domain.TwitchUser, error)

	SendChatMessage(ctx context.Context, text string) error

	GetChannelEmotes(ctx context.Context, userID string) ([]Emote, error)
}
