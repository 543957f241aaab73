// Package dispatcher consumes the occurrence queue and drives each
// occurrence through matching, gating, and outcome resolution.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
	"github.com/vtftk/app/internal/matching"
	"github.com/vtftk/app/internal/metrics"
)

// Matcher normalizes an occurrence and finds its candidates.
type Matcher interface {
	Match(ctx context.Context, occ domain.Occurrence) (matching.MatchSet, error)
}

// Gate decides whether a candidate may fire.
type Gate interface {
	HasRequiredRole(ctx context.Context, required domain.MinimumRole, user *domain.TwitchUser) (bool, error)
	CooldownElapsed(ctx context.Context, automationID uuid.UUID, cooldown domain.Cooldown, user *domain.TwitchUser) (bool, error)
}

// Resolver produces outcome side effects.
type Resolver interface {
	ResolveEvent(ctx context.Context, outcome domain.Outcome, data domain.EventData) error
	ResolveCommand(ctx context.Context, out domain.CommandOutcome, data domain.EventData, message string, args []string) error
}

// Store is the write surface of the dispatcher: execution records and
// the chat history the timer activity guard reads.
type Store interface {
	CreateExecution(ctx context.Context, exec domain.Execution) error
	InsertChatMessage(ctx context.Context, messageID, userID, message string, createdAt time.Time) error
}

// ClientControl reacts to platform control signals.
type ClientControl interface {
	ReloadModerators(ctx context.Context) error
	ReloadVips(ctx context.Context) error
	Reset()
}

// Dispatcher is the processing loop. One Run consumes one occurrence
// channel until it is closed or the context is cancelled.
type Dispatcher struct {
	matcher Matcher
	gate    Gate
	resolve Resolver
	store   Store
	client  ClientControl
	sink    metrics.Sink
	log     *zap.SugaredLogger

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(matcher Matcher, gate Gate, resolve Resolver, store Store, client ClientControl, sink metrics.Sink, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		matcher: matcher,
		gate:    gate,
		resolve: resolve,
		store:   store,
		client:  client,
		sink:    sink,
		log:     log,
		clock:   time.Now,
		sleep:   sleepCtx,
	}
}

// Run consumes occurrences until the channel closes or ctx is
// cancelled. Each occurrence is processed on its own goroutine; Run
// waits for in-flight work before returning.
func (d *Dispatcher) Run(ctx context.Context, occurrences <-chan domain.Occurrence) {
	d.log.Infow("dispatcher started")
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			d.log.Infow("dispatcher stopping", "reason", ctx.Err())
			wg.Wait()
			return
		case occ, ok := <-occurrences:
			if !ok {
				d.log.Infow("dispatcher stopping", "reason", "occurrence channel closed")
				wg.Wait()
				return
			}

			d.sink.OccurrenceReceived(string(occ.Kind))
			if occ.IsControl() {
				d.handleControl(ctx, occ)
				continue
			}

			wg.Add(1)
			d.sink.OccurrencesInFlightIncr()
			go func() {
				defer wg.Done()
				defer d.sink.OccurrencesInFlightDecr()
				d.process(ctx, occ)
			}()
		}
	}
}

// handleControl runs inline on the loop goroutine so cache invalidation
// is ordered ahead of the occurrences that follow it.
func (d *Dispatcher) handleControl(ctx context.Context, occ domain.Occurrence) {
	switch occ.Kind {
	case domain.OccurrenceModeratorsChanged:
		if err := d.client.ReloadModerators(ctx); err != nil {
			d.log.Errorw("dispatcher: reload moderators failed", "error", err)
		}
	case domain.OccurrenceVipsChanged:
		if err := d.client.ReloadVips(ctx); err != nil {
			d.log.Errorw("dispatcher: reload vips failed", "error", err)
		}
	case domain.OccurrenceRewardsChanged:
		d.log.Infow("dispatcher: channel rewards changed")
	case domain.OccurrenceClientReset:
		d.client.Reset()
		d.log.Infow("dispatcher: client caches reset")
	case domain.OccurrenceClientLoggedIn:
		d.log.Infow("dispatcher: client logged in")
	case domain.OccurrenceClientLoggedOut:
		d.client.Reset()
		d.log.Infow("dispatcher: client logged out")
	}
}

func (d *Dispatcher) process(ctx context.Context, occ domain.Occurrence) {
	if occ.Kind == domain.OccurrenceChatMessage {
		d.recordChatMessage(ctx, occ)
	}

	set, err := d.matcher.Match(ctx, occ)
	if err != nil {
		d.log.Errorw("dispatcher: match failed", "kind", occ.Kind, "error", err)
		return
	}

	d.sink.CandidatesMatched(len(set.Commands) + len(set.Events))
	var wg sync.WaitGroup

	for _, command := range set.Commands {
		wg.Add(1)
		go func(cmd matching.CommandWithContext) {
			defer wg.Done()
			d.fireCommand(ctx, cmd, set.EventData)
		}(command)
	}
	for _, event := range set.Events {
		wg.Add(1)
		go func(event domain.Event) {
			defer wg.Done()
			d.fireEvent(ctx, event, set.EventData)
		}(event)
	}
	wg.Wait()
}

func (d *Dispatcher) recordChatMessage(ctx context.Context, occ domain.Occurrence) {
	var userID string
	if occ.User != nil {
		userID = occ.User.ID
	}
	if err := d.store.InsertChatMessage(ctx, occ.MessageID, userID, occ.Message, d.clock()); err != nil {
		d.log.Errorw("dispatcher: record chat message failed", "error", err)
	}
}

func (d *Dispatcher) fireCommand(ctx context.Context, cmd matching.CommandWithContext, data domain.EventData) {
	if !d.allow(ctx, cmd.Command.ID, cmd.Command.RequireRole, cmd.Command.Cooldown, data.User) {
		return
	}

	gatedAt := d.clock()

	start := d.clock()
	err := d.resolve.ResolveCommand(ctx, cmd.Command.Outcome, data, cmd.Message, cmd.Args)
	d.sink.OutcomeCompleted(string(cmd.Command.Outcome.Type), time.Since(start), err)
	if err != nil {
		d.log.Errorw("dispatcher: command outcome failed",
			"command_id", cmd.Command.ID, "name", cmd.Command.Name, "error", err)
		d.sink.CandidateResult(metrics.ResultFailed)
		return
	}

	d.recordExecution(ctx, cmd.Command.ID, domain.AutomationCommand, data, gatedAt)
	d.sink.CandidateResult(metrics.ResultFired)
}

func (d *Dispatcher) fireEvent(ctx context.Context, event domain.Event, data domain.EventData) {
	if !d.allow(ctx, event.ID, event.Config.RequireRole, event.Config.Cooldown, data.User) {
		return
	}

	// The record written after the outcome keeps the gate-time
	// timestamp even when the outcome itself is delayed.
	gatedAt := d.clock()

	start := d.clock()
	if delay := event.Config.OutcomeDelayMs; delay > 0 {
		if err := d.sleep(ctx, time.Duration(delay)*time.Millisecond); err != nil {
			d.sink.CandidateResult(metrics.ResultFailed)
			return
		}
	}

	err := d.resolve.ResolveEvent(ctx, event.Config.Outcome, data)
	d.sink.OutcomeCompleted(string(event.Config.Outcome.Type), time.Since(start), err)
	if err != nil {
		d.log.Errorw("dispatcher: event outcome failed",
			"event_id", event.ID, "name", event.Name, "error", err)
		d.sink.CandidateResult(metrics.ResultFailed)
		return
	}

	d.recordExecution(ctx, event.ID, domain.AutomationEvent, data, gatedAt)
	d.sink.CandidateResult(metrics.ResultFired)
}

// allow runs the role check then the cooldown check, recording the
// denial reason.
func (d *Dispatcher) allow(ctx context.Context, automationID uuid.UUID, required domain.MinimumRole, cooldown domain.Cooldown, user *domain.TwitchUser) bool {
	ok, err := d.gate.HasRequiredRole(ctx, required, user)
	if err != nil {
		d.log.Errorw("dispatcher: role check failed",
			"automation_id", automationID, "error", err)
		d.sink.CandidateResult(metrics.ResultFailed)
		return false
	}
	if !ok {
		d.sink.CandidateResult(metrics.ResultRoleDenied)
		return false
	}

	ok, err = d.gate.CooldownElapsed(ctx, automationID, cooldown, user)
	if err != nil {
		d.log.Errorw("dispatcher: cooldown check failed",
			"automation_id", automationID, "error", err)
		d.sink.CandidateResult(metrics.ResultFailed)
		return false
	}
	if !ok {
		d.sink.CandidateResult(metrics.ResultCooldownHeld)
		return false
	}
	return true
}

// recordExecution persists one completed firing. Only candidates whose
// outcome resolved are recorded, so the cooldown is never held by a
// failed resolution. A write failure is logged only.
func (d *Dispatcher) recordExecution(ctx context.Context, automationID uuid.UUID, kind domain.AutomationKind, data domain.EventData, gatedAt time.Time) {
	exec := domain.Execution{
		ID:           uuid.New(),
		AutomationID: automationID,
		Kind:         kind,
		User:         data.User,
		Input:        data.Input,
		CreatedAt:    gatedAt,
	}
	if err := d.store.CreateExecution(ctx, exec); err != nil {
		d.log.Errorw("dispatcher: record execution failed",
			"automation_id", automationID, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
