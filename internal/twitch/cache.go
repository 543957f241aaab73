package twitch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
)

const followerCacheTTL = 10 * time.Minute

// CachedClient wraps a Client, caching the moderator and VIP lists and
// recent follower lookups. The dispatcher invalidates the lists when the
// platform reports membership changes.
type CachedClient struct {
	client Client
	log    *zap.SugaredLogger
	clock  func() time.Time

	mu        sync.RWMutex
	mods      []domain.TwitchUser
	modsSet   bool
	vips      []domain.TwitchUser
	vipsSet   bool
	followers map[string]followerEntry
}

type followerEntry struct {
	follower bool
	fetched  time.Time
}

func NewCachedClient(client Client, log *zap.SugaredLogger) *CachedClient {
	return &CachedClient{
		client:    client,
		log:       log,
		clock:     time.Now,
		followers: make(map[string]followerEntry),
	}
}

func (c *CachedClient) BroadcasterID(ctx context.Context) (string, error) {
	return c.client.BroadcasterID(ctx)
}

func (c *CachedClient) IsFollower(ctx context.Context, userID string) (bool, error) {
	c.mu.RLock()
	entry, ok := c.followers[userID]
	c.mu.RUnlock()
	if ok && c.clock().Sub(entry.fetched) < followerCacheTTL {
		return entry.follower, nil
	}

	follower, err := c.client.IsFollower(ctx, userID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.followers[userID] = followerEntry{follower: follower, fetched: c.clock()}
	c.mu.Unlock()
	return follower, nil
}

func (c *CachedClient) GetModeratorList(ctx context.Context) ([]domain.TwitchUser, error) {
	c.mu.RLock()
	if c.modsSet {
		mods := c.mods
		c.mu.RUnlock()
		return mods, nil
	}
	c.mu.RUnlock()

	mods, err := c.client.GetModeratorList(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.mods = mods
	c.modsSet = true
	c.mu.Unlock()
	return mods, nil
}

func (c *CachedClient) GetVipList(ctx context.Context) ([]domain.TwitchUser, error) {
	c.mu.RLock()
	if c.vipsSet {
		vips := c.vips
		c.mu.RUnlock()
		return vips, nil
	}
	c.mu.RUnlock()

	vips, err := c.client.GetVipList(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.vips = vips
	c.vipsSet = true
	c.mu.Unlock()
	return vips, nil
}

func (c *CachedClient) SendChatMessage(ctx context.Context, text string) error {
	return c.client.SendChatMessage(ctx, text)
}

func (c *CachedClient) GetChannelEmotes(ctx context.Context, userID string) ([]Emote, error) {
	return c.client.GetChannelEmotes(ctx, userID)
}

// ReloadModerators drops the cached moderator list and eagerly refetches.
func (c *CachedClient) ReloadModerators(ctx context.Context) error {
	c.mu.Lock()
	c.mods = nil
	c.modsSet = false
	c.mu.Unlock()

	_, err := c.GetModeratorList(ctx)
	return err
}

// ReloadVips drops the cached VIP list and eagerly refetches.
func (c *CachedClient) ReloadVips(ctx context.Context) error {
	c.mu.Lock()
	c.vips = nil
	c.vipsSet = false
	c.mu.Unlock()

	_, err := c.GetVipList(ctx)
	return err
}

// Reset drops all cached state, for client re-authentication.
func (c *CachedClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mods = nil
	c.modsSet = false
	c.vips = nil
	c.vipsSet = false
	c.followers = make(map[string]followerEntry)
}
