package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
	"github.com/vtftk/app/internal/matching"
	"github.com/vtftk/app/internal/metrics"
)

type fakeMatcher struct {
	sets map[domain.OccurrenceKind]matching.MatchSet
	err  error
}

func (f *fakeMatcher) Match(_ context.Context, occ domain.Occurrence) (matching.MatchSet, error) {
	if f.err != nil {
		return matching.MatchSet{}, f.err
	}
	return f.sets[occ.Kind], nil
}

type fakeGate struct {
	mu         sync.Mutex
	roleOK     bool
	cooldownOK bool
	roleCalls  int
	cdCalls    int
}

func (f *fakeGate) HasRequiredRole(context.Context, domain.MinimumRole, *domain.TwitchUser) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls++
	return f.roleOK, nil
}

func (f *fakeGate) CooldownElapsed(context.Context, uuid.UUID, domain.Cooldown, *domain.TwitchUser) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cdCalls++
	return f.cooldownOK, nil
}

type resolved struct {
	eventOutcome *domain.Outcome
	command      *domain.CommandOutcome
	data         domain.EventData
	at           time.Time
}

type fakeResolver struct {
	mu    sync.Mutex
	calls []resolved
	err   error
}

func (f *fakeResolver) ResolveEvent(_ context.Context, outcome domain.Outcome, data domain.EventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, resolved{eventOutcome: &outcome, data: data, at: time.Now()})
	return f.err
}

func (f *fakeResolver) ResolveCommand(_ context.Context, out domain.CommandOutcome, data domain.EventData, _ string, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, resolved{command: &out, data: data, at: time.Now()})
	return f.err
}

func (f *fakeResolver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStore struct {
	mu         sync.Mutex
	executions []domain.Execution
	chat       []string
}

func (f *fakeStore) CreateExecution(_ context.Context, exec domain.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executions = append(f.executions, exec)
	return nil
}

func (f *fakeStore) InsertChatMessage(_ context.Context, messageID, _, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chat = append(f.chat, messageID)
	return nil
}

func (f *fakeStore) executionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executions)
}

type fakeControl struct {
	mu         sync.Mutex
	modReloads int
	vipReloads int
	resets     int
}

func (f *fakeControl) ReloadModerators(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modReloads++
	return nil
}

func (f *fakeControl) ReloadVips(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vipReloads++
	return nil
}

func (f *fakeControl) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

type fixture struct {
	matcher  *fakeMatcher
	gate     *fakeGate
	resolver *fakeResolver
	store    *fakeStore
	control  *fakeControl
	d        *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		matcher:  &fakeMatcher{sets: map[domain.OccurrenceKind]matching.MatchSet{}},
		gate:     &fakeGate{roleOK: true, cooldownOK: true},
		resolver: &fakeResolver{},
		store:    &fakeStore{},
		control:  &fakeControl{},
	}
	f.d = New(f.matcher, f.gate, f.resolver, f.store, f.control, metrics.NewNoopSink(), zap.NewNop().Sugar())
	return f
}

// run feeds the occurrences through a channel, closes it, and waits for
// the loop to drain.
func run(t *testing.T, f *fixture, occurrences ...domain.Occurrence) {
	t.Helper()
	ch := make(chan domain.Occurrence, len(occurrences))
	for _, occ := range occurrences {
		ch <- occ
	}
	close(ch)

	done := make(chan struct{})
	go func() {
		f.d.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not drain")
	}
}

func TestRun_FiresMatchedEvent(t *testing.T) {
	f := newFixture()
	event := domain.Event{
		ID:      uuid.New(),
		Enabled: true,
		Config: domain.EventConfig{
			Outcome: domain.Outcome{
				Type:          domain.OutcomeTypeTriggerHotkey,
				TriggerHotkey: &domain.OutcomeTriggerHotkey{HotkeyID: "hk"},
			},
		},
	}
	f.matcher.sets[domain.OccurrenceFollow] = matching.MatchSet{
		EventData: domain.EventData{User: &domain.TwitchUser{ID: "u1"}},
		Events:    []domain.Event{event},
	}

	run(t, f, domain.Occurrence{Kind: domain.OccurrenceFollow, User: &domain.TwitchUser{ID: "u1"}})

	if f.resolver.count() != 1 {
		t.Fatalf("expected one outcome resolved, got %d", f.resolver.count())
	}
	if f.store.executionCount() != 1 {
		t.Fatalf("expected one execution record, got %d", f.store.executionCount())
	}
	exec := f.store.executions[0]
	if exec.AutomationID != event.ID || exec.Kind != domain.AutomationEvent {
		t.Errorf("unexpected execution record: %+v", exec)
	}
}

func TestRun_FailedOutcomeLeavesNoRecord(t *testing.T) {
	f := newFixture()
	f.resolver.err = errors.New("overlay unavailable")
	f.matcher.sets[domain.OccurrenceFollow] = matching.MatchSet{
		EventData: domain.EventData{User: &domain.TwitchUser{ID: "u1"}},
		Events: []domain.Event{{
			ID:      uuid.New(),
			Enabled: true,
			Config: domain.EventConfig{
				Outcome: domain.Outcome{
					Type:          domain.OutcomeTypeTriggerHotkey,
					TriggerHotkey: &domain.OutcomeTriggerHotkey{HotkeyID: "hk"},
				},
			},
		}},
	}

	run(t, f, domain.Occurrence{Kind: domain.OccurrenceFollow, User: &domain.TwitchUser{ID: "u1"}})

	if f.resolver.count() != 1 {
		t.Fatalf("expected the outcome to be attempted, got %d", f.resolver.count())
	}
	if f.store.executionCount() != 0 {
		t.Errorf("failed resolution should leave no execution record, got %d", f.store.executionCount())
	}
}

func TestRun_ExecutionRecordKeepsGateTimestamp(t *testing.T) {
	f := newFixture()
	gateTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := gateTime
	f.d.clock = func() time.Time { return now }
	f.d.sleep = func(_ context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}

	event := domain.Event{
		ID:      uuid.New(),
		Enabled: true,
		Config: domain.EventConfig{
			OutcomeDelayMs: 2000,
			Outcome: domain.Outcome{
				Type:          domain.OutcomeTypeTriggerHotkey,
				TriggerHotkey: &domain.OutcomeTriggerHotkey{HotkeyID: "hk"},
			},
		},
	}
	f.matcher.sets[domain.OccurrenceFollow] = matching.MatchSet{Events: []domain.Event{event}}

	run(t, f, domain.Occurrence{Kind: domain.OccurrenceFollow})

	if f.store.executionCount() != 1 {
		t.Fatalf("expected one execution record, got %d", f.store.executionCount())
	}
	if got := f.store.executions[0].CreatedAt; !got.Equal(gateTime) {
		t.Errorf("record timestamp = %v, want gate time %v", got, gateTime)
	}
}

func TestRun_GatedCandidateLeavesNoRecord(t *testing.T) {
	f := newFixture()
	f.gate.cooldownOK = false
	f.matcher.sets[domain.OccurrenceFollow] = matching.MatchSet{
		Events: []domain.Event{{ID: uuid.New(), Enabled: true}},
	}

	run(t, f, domain.Occurrence{Kind: domain.OccurrenceFollow})

	if f.resolver.count() != 0 {
		t.Errorf("gated candidate should not resolve an outcome")
	}
	if f.store.executionCount() != 0 {
		t.Errorf("gated candidate should not record an execution")
	}
}

func TestRun_RoleDeniedSkipsCooldown(t *testing.T) {
	f := newFixture()
	f.gate.roleOK = false
	f.matcher.sets[domain.OccurrenceFollow] = matching.MatchSet{
		Events: []domain.Event{{ID: uuid.New(), Enabled: true}},
	}

	run(t, f, domain.Occurrence{Kind: domain.OccurrenceFollow})

	if f.gate.cdCalls != 0 {
		t.Errorf("cooldown should not be checked after a role denial")
	}
}

func TestRun_CommandAndEventFanOut(t *testing.T) {
	f := newFixture()
	command := domain.Command{
		ID:      uuid.New(),
		Enabled: true,
		Outcome: domain.CommandOutcome{Type: domain.CommandOutcomeTemplate, Template: "hi"},
	}
	event := domain.Event{
		ID:      uuid.New(),
		Enabled: true,
		Config: domain.EventConfig{
			Outcome: domain.Outcome{
				Type:     domain.OutcomeTypeSendChat,
				SendChat: &domain.OutcomeSendChat{Template: "yo"},
			},
		},
	}
	f.matcher.sets[domain.OccurrenceChatMessage] = matching.MatchSet{
		EventData: domain.EventData{User: &domain.TwitchUser{ID: "u1"}},
		Commands:  []matching.CommandWithContext{{Command: command}},
		Events:    []domain.Event{event},
	}

	run(t, f, domain.Occurrence{
		Kind:      domain.OccurrenceChatMessage,
		User:      &domain.TwitchUser{ID: "u1"},
		MessageID: "m1",
		Message:   "!hi",
	})

	if f.resolver.count() != 2 {
		t.Fatalf("expected both candidates resolved, got %d", f.resolver.count())
	}
	if f.store.executionCount() != 2 {
		t.Fatalf("expected two execution records, got %d", f.store.executionCount())
	}
	if len(f.store.chat) != 1 || f.store.chat[0] != "m1" {
		t.Errorf("chat message should be recorded once, got %v", f.store.chat)
	}
}

func TestRun_OutcomeDelayBeforeSideEffect(t *testing.T) {
	f := newFixture()
	var slept time.Duration
	f.d.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	event := domain.Event{
		ID:      uuid.New(),
		Enabled: true,
		Config: domain.EventConfig{
			OutcomeDelayMs: 1500,
			Outcome: domain.Outcome{
				Type:          domain.OutcomeTypeTriggerHotkey,
				TriggerHotkey: &domain.OutcomeTriggerHotkey{HotkeyID: "hk"},
			},
		},
	}
	f.matcher.sets[domain.OccurrenceFollow] = matching.MatchSet{Events: []domain.Event{event}}

	run(t, f, domain.Occurrence{Kind: domain.OccurrenceFollow})

	if slept != 1500*time.Millisecond {
		t.Errorf("expected 1500ms outcome delay, slept %v", slept)
	}
	if f.resolver.count() != 1 {
		t.Errorf("outcome should still resolve after the delay")
	}
}

func TestRun_ControlSignalsHandledInline(t *testing.T) {
	f := newFixture()

	run(t, f,
		domain.Occurrence{Kind: domain.OccurrenceModeratorsChanged},
		domain.Occurrence{Kind: domain.OccurrenceVipsChanged},
		domain.Occurrence{Kind: domain.OccurrenceClientReset},
		domain.Occurrence{Kind: domain.OccurrenceClientLoggedOut},
	)

	if f.control.modReloads != 1 || f.control.vipReloads != 1 {
		t.Errorf("expected one reload each, got mods=%d vips=%d", f.control.modReloads, f.control.vipReloads)
	}
	if f.control.resets != 2 {
		t.Errorf("reset and logout should both reset caches, got %d", f.control.resets)
	}
	if f.resolver.count() != 0 {
		t.Errorf("control signals must not be matched")
	}
}

func TestRun_MatchErrorDropsOccurrence(t *testing.T) {
	f := newFixture()
	f.matcher.err = errors.New("store down")

	run(t, f, domain.Occurrence{Kind: domain.OccurrenceFollow})

	if f.resolver.count() != 0 || f.store.executionCount() != 0 {
		t.Errorf("failed match should produce no side effects")
	}
}

func TestRun_ContextCancelStopsLoop(t *testing.T) {
	f := newFixture()
	ch := make(chan domain.Occurrence)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.d.Run(ctx, ch)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop on cancellation")
	}
}
