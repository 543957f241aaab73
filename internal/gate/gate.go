// Package gate decides whether a matched automation is allowed to fire,
// checking the triggering user's role and the automation's cooldown.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
)

// RoleSource is the platform surface role checks read. Satisfied by
// twitch.CachedClient.
type RoleSource interface {
	BroadcasterID(ctx context.Context) (string, error)
	IsFollower(ctx context.Context, userID string) (bool, error)
	GetModeratorList(ctx context.Context) ([]domain.TwitchUser, error)
	GetVipList(ctx context.Context) ([]domain.TwitchUser, error)
}

// ExecutionSource pages execution history newest-first, one record per
// call. A nil record means history is exhausted.
type ExecutionSource interface {
	GetLastExecution(ctx context.Context, automationID uuid.UUID, offset int64) (*domain.Execution, error)
}

// Gate evaluates role and cooldown requirements for matched automations.
type Gate struct {
	roles RoleSource
	execs ExecutionSource
	log   *zap.SugaredLogger
	clock func() time.Time
}

func New(roles RoleSource, execs ExecutionSource, log *zap.SugaredLogger) *Gate {
	return &Gate{roles: roles, execs: execs, log: log, clock: time.Now}
}

// Allow reports whether the automation may fire for the given user. Both
// checks must pass; role is checked first.
func (g *Gate) Allow(ctx context.Context, automationID uuid.UUID, required domain.MinimumRole, cooldown domain.Cooldown, user *domain.TwitchUser) (bool, error) {
	ok, err := g.HasRequiredRole(ctx, required, user)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return g.CooldownElapsed(ctx, automationID, cooldown, user)
}

// HasRequiredRole reports whether the user meets the minimum role. The
// broadcaster passes every requirement. A nil user only passes when no
// role is required.
func (g *Gate) HasRequiredRole(ctx context.Context, required domain.MinimumRole, user *domain.TwitchUser) (bool, error) {
	if required == domain.RoleNone {
		return true, nil
	}
	if user == nil {
		return false, nil
	}

	broadcasterID, err := g.roles.BroadcasterID(ctx)
	if err != nil {
		return false, fmt.Errorf("get broadcaster id: %w", err)
	}
	if broadcasterID != "" && user.ID == broadcasterID {
		return true, nil
	}

	switch required {
	case domain.RoleBroadcaster:
		return false, nil
	case domain.RoleMod:
		return g.isModerator(ctx, user.ID)
	case domain.RoleVip:
		// Moderators implicitly satisfy the VIP requirement.
		vip, err := g.isVip(ctx, user.ID)
		if err != nil || vip {
			return vip, err
		}
		return g.isModerator(ctx, user.ID)
	case domain.RoleFollower:
		follows, err := g.roles.IsFollower(ctx, user.ID)
		if err != nil {
			return false, fmt.Errorf("check follower: %w", err)
		}
		return follows, nil
	default:
		g.log.Warnw("gate: unknown minimum role, denying", "role", required)
		return false, nil
	}
}

// CooldownElapsed reports whether the automation's cooldown window has
// passed. The window holds through its exact end instant. Per-user
// cooldowns scan history for the triggering user's most recent firing;
// anonymous users are never held by a per-user cooldown.
func (g *Gate) CooldownElapsed(ctx context.Context, automationID uuid.UUID, cooldown domain.Cooldown, user *domain.TwitchUser) (bool, error) {
	if !cooldown.Enabled || cooldown.DurationMs <= 0 {
		return true, nil
	}

	duration := time.Duration(cooldown.DurationMs) * time.Millisecond
	now := g.clock()

	if !cooldown.PerUser {
		last, err := g.execs.GetLastExecution(ctx, automationID, 0)
		if err != nil {
			return false, fmt.Errorf("get last execution: %w", err)
		}
		if last == nil {
			return true, nil
		}
		return now.After(last.CreatedAt.Add(duration)), nil
	}

	if user == nil {
		return true, nil
	}

	for offset := int64(0); ; offset++ {
		record, err := g.execs.GetLastExecution(ctx, automationID, offset)
		if err != nil {
			return false, fmt.Errorf("get last execution: %w", err)
		}
		if record == nil {
			return true, nil
		}

		elapsed := now.After(record.CreatedAt.Add(duration))
		if record.User != nil && record.User.ID == user.ID {
			return elapsed, nil
		}
		// Records are newest-first: once an unrelated record is already
		// outside the window, any older record for this user is too.
		if elapsed {
			return true, nil
		}
	}
}

func (g *Gate) isModerator(ctx context.Context, userID string) (bool, error) {
	mods, err := g.roles.GetModeratorList(ctx)
	if err != nil {
		return false, fmt.Errorf("get moderators: %w", err)
	}
	return containsUser(mods, userID), nil
}

func (g *Gate) isVip(ctx context.Context, userID string) (bool, error) {
	vips, err := g.roles.GetVipList(ctx)
	if err != nil {
		return false, fmt.Errorf("get vips: %w", err)
	}
	return containsUser(vips, userID), nil
}

func containsUser(users []domain.TwitchUser, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}
