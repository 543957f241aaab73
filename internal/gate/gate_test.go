package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
)

type fakeRoles struct {
	broadcasterID string
	followers     map[string]bool
	mods          []domain.TwitchUser
	vips          []domain.TwitchUser
	err           error
}

func (f *fakeRoles) BroadcasterID(context.Context) (string, error) {
	return f.broadcasterID, f.err
}

func (f *fakeRoles) IsFollower(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.followers[userID], nil
}

func (f *fakeRoles) GetModeratorList(context.Context) ([]domain.TwitchUser, error) {
	return f.mods, f.err
}

func (f *fakeRoles) GetVipList(context.Context) ([]domain.TwitchUser, error) {
	return f.vips, f.err
}

// fakeExecs serves history newest-first from a slice.
type fakeExecs struct {
	records []domain.Execution
	calls   int
}

func (f *fakeExecs) GetLastExecution(_ context.Context, _ uuid.UUID, offset int64) (*domain.Execution, error) {
	f.calls++
	if offset < 0 || offset >= int64(len(f.records)) {
		return nil, nil
	}
	record := f.records[offset]
	return &record, nil
}

func newTestGate(roles *fakeRoles, execs *fakeExecs, now time.Time) *Gate {
	g := New(roles, execs, zap.NewNop().Sugar())
	g.clock = func() time.Time { return now }
	return g
}

func user(id string) *domain.TwitchUser {
	return &domain.TwitchUser{ID: id, Name: "user-" + id}
}

func TestHasRequiredRole(t *testing.T) {
	roles := &fakeRoles{
		broadcasterID: "caster",
		followers:     map[string]bool{"fan": true},
		mods:          []domain.TwitchUser{{ID: "mod1"}},
		vips:          []domain.TwitchUser{{ID: "vip1"}},
	}
	g := newTestGate(roles, &fakeExecs{}, time.Now())

	tests := []struct {
		name     string
		required domain.MinimumRole
		user     *domain.TwitchUser
		want     bool
	}{
		{name: "none passes anyone", required: domain.RoleNone, user: user("rando"), want: true},
		{name: "none passes nil user", required: domain.RoleNone, user: nil, want: true},
		{name: "nil user fails follower", required: domain.RoleFollower, user: nil, want: false},
		{name: "broadcaster passes broadcaster", required: domain.RoleBroadcaster, user: user("caster"), want: true},
		{name: "broadcaster passes mod requirement", required: domain.RoleMod, user: user("caster"), want: true},
		{name: "mod fails broadcaster requirement", required: domain.RoleBroadcaster, user: user("mod1"), want: false},
		{name: "mod passes mod", required: domain.RoleMod, user: user("mod1"), want: true},
		{name: "vip fails mod", required: domain.RoleMod, user: user("vip1"), want: false},
		{name: "vip passes vip", required: domain.RoleVip, user: user("vip1"), want: true},
		{name: "mod passes vip", required: domain.RoleVip, user: user("mod1"), want: true},
		{name: "follower fails vip", required: domain.RoleVip, user: user("fan"), want: false},
		{name: "follower passes follower", required: domain.RoleFollower, user: user("fan"), want: true},
		{name: "stranger fails follower", required: domain.RoleFollower, user: user("rando"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.HasRequiredRole(context.Background(), tc.required, tc.user)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("HasRequiredRole(%s, %v) = %v, want %v", tc.required, tc.user, got, tc.want)
			}
		})
	}
}

func TestHasRequiredRole_PlatformError(t *testing.T) {
	apiErr := errors.New("api unavailable")
	g := newTestGate(&fakeRoles{err: apiErr}, &fakeExecs{}, time.Now())

	_, err := g.HasRequiredRole(context.Background(), domain.RoleFollower, user("fan"))
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected platform error propagated, got %v", err)
	}
}

func TestCooldownElapsed_Global(t *testing.T) {
	automationID := uuid.New()
	firedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := domain.Cooldown{Enabled: true, DurationMs: 1000}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "just before window closes", now: firedAt.Add(999 * time.Millisecond), want: false},
		{name: "exact window boundary still holds", now: firedAt.Add(1000 * time.Millisecond), want: false},
		{name: "strictly after window", now: firedAt.Add(1001 * time.Millisecond), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			execs := &fakeExecs{records: []domain.Execution{
				{AutomationID: automationID, CreatedAt: firedAt},
			}}
			g := newTestGate(&fakeRoles{}, execs, tc.now)

			got, err := g.CooldownElapsed(context.Background(), automationID, cooldown, user("u1"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("CooldownElapsed at %v = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestCooldownElapsed_DisabledOrEmptyHistory(t *testing.T) {
	g := newTestGate(&fakeRoles{}, &fakeExecs{}, time.Now())

	ok, err := g.CooldownElapsed(context.Background(), uuid.New(), domain.Cooldown{}, user("u1"))
	if err != nil || !ok {
		t.Fatalf("disabled cooldown should pass: ok=%v err=%v", ok, err)
	}

	ok, err = g.CooldownElapsed(context.Background(), uuid.New(), domain.Cooldown{Enabled: true, DurationMs: 1000}, user("u1"))
	if err != nil || !ok {
		t.Fatalf("empty history should pass: ok=%v err=%v", ok, err)
	}
}

func TestCooldownElapsed_PerUser(t *testing.T) {
	automationID := uuid.New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := domain.Cooldown{Enabled: true, DurationMs: 10_000, PerUser: true}

	// Newest first: bob fired recently, alice fired before him.
	execs := &fakeExecs{records: []domain.Execution{
		{AutomationID: automationID, User: user("bob"), CreatedAt: base.Add(-2 * time.Second)},
		{AutomationID: automationID, User: user("alice"), CreatedAt: base.Add(-8 * time.Second)},
	}}
	g := newTestGate(&fakeRoles{}, execs, base)

	ok, err := g.CooldownElapsed(context.Background(), automationID, cooldown, user("bob"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("bob fired 2s ago, should still be held")
	}

	ok, err = g.CooldownElapsed(context.Background(), automationID, cooldown, user("alice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("alice fired 8s ago inside a 10s window, should still be held")
	}

	ok, err = g.CooldownElapsed(context.Background(), automationID, cooldown, user("carol"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("carol never fired, should pass")
	}
}

func TestCooldownElapsed_PerUserBoundaryHolds(t *testing.T) {
	automationID := uuid.New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := domain.Cooldown{Enabled: true, DurationMs: 10_000, PerUser: true}

	execs := &fakeExecs{records: []domain.Execution{
		{AutomationID: automationID, User: user("bob"), CreatedAt: base.Add(-10 * time.Second)},
	}}
	g := newTestGate(&fakeRoles{}, execs, base)

	ok, err := g.CooldownElapsed(context.Background(), automationID, cooldown, user("bob"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("bob fired exactly one window ago, should still be held")
	}
}

func TestCooldownElapsed_PerUserStopsAtStaleRecord(t *testing.T) {
	automationID := uuid.New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := domain.Cooldown{Enabled: true, DurationMs: 10_000, PerUser: true}

	// The second record is already outside the window, so the scan stops
	// there without reading the rest of history.
	execs := &fakeExecs{records: []domain.Execution{
		{AutomationID: automationID, User: user("bob"), CreatedAt: base.Add(-2 * time.Second)},
		{AutomationID: automationID, User: user("carol"), CreatedAt: base.Add(-30 * time.Second)},
		{AutomationID: automationID, User: user("alice"), CreatedAt: base.Add(-40 * time.Second)},
	}}
	g := newTestGate(&fakeRoles{}, execs, base)

	ok, err := g.CooldownElapsed(context.Background(), automationID, cooldown, user("alice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("alice's only firing is outside the window, should pass")
	}
	if execs.calls != 2 {
		t.Errorf("expected scan to stop at the first stale record, made %d reads", execs.calls)
	}
}

func TestCooldownElapsed_PerUserAnonymousBypasses(t *testing.T) {
	automationID := uuid.New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := domain.Cooldown{Enabled: true, DurationMs: 10_000, PerUser: true}

	execs := &fakeExecs{records: []domain.Execution{
		{AutomationID: automationID, User: user("bob"), CreatedAt: base.Add(-1 * time.Second)},
	}}
	g := newTestGate(&fakeRoles{}, execs, base)

	ok, err := g.CooldownElapsed(context.Background(), automationID, cooldown, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("anonymous trigger should bypass per-user cooldown")
	}
}

func TestAllow_RoleCheckedBeforeCooldown(t *testing.T) {
	automationID := uuid.New()
	execs := &fakeExecs{}
	g := newTestGate(&fakeRoles{broadcasterID: "caster"}, execs, time.Now())

	ok, err := g.Allow(context.Background(), automationID, domain.RoleMod,
		domain.Cooldown{Enabled: true, DurationMs: 1000}, user("rando"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("non-mod should be denied")
	}
	if execs.calls != 0 {
		t.Errorf("cooldown should not be consulted after a role denial")
	}
}
