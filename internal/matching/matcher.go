// Package matching normalizes raw occurrences into canonical event data
// and finds every automation whose trigger matches.
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
)

// ErrUnmatchableOccurrence is returned for occurrence kinds the matcher
// does not handle (control signals and unknown kinds).
var ErrUnmatchableOccurrence = errors.New("occurrence kind cannot be matched")

// Store is the record-store surface the matcher reads.
type Store interface {
	GetEventsByTriggerType(ctx context.Context, trigger domain.TriggerType) ([]domain.Event, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
	GetCommandsByTrigger(ctx context.Context, token string) ([]domain.Command, error)
	GetLastExecution(ctx context.Context, automationID uuid.UUID, offset int64) (*domain.Execution, error)
	CountChatMessagesSince(ctx context.Context, since time.Time) (int64, error)
}

// CommandWithContext is a matched command plus the parsed message parts.
type CommandWithContext struct {
	Command domain.Command

	// Message is everything after the trigger token.
	Message string
	Args    []string
}

// MatchSet is every automation matched by one occurrence, paired with
// the canonical event data all of them share.
type MatchSet struct {
	EventData domain.EventData
	Commands  []CommandWithContext
	Events    []domain.Event
}

// Matcher converts occurrences to canonical event data and candidate
// automations.
type Matcher struct {
	store Store
	log   *zap.SugaredLogger
}

func New(store Store, log *zap.SugaredLogger) *Matcher {
	return &Matcher{store: store, log: log}
}

// Match normalizes one occurrence and returns every matching candidate.
func (m *Matcher) Match(ctx context.Context, occ domain.Occurrence) (MatchSet, error) {
	switch occ.Kind {
	case domain.OccurrenceRedeem:
		return m.matchRedeem(ctx, occ)
	case domain.OccurrenceCheerBits:
		return m.matchCheerBits(ctx, occ)
	case domain.OccurrenceFollow:
		return m.matchUnconditional(ctx, occ, domain.TriggerTypeFollow, domain.EventData{
			User:  occ.User,
			Input: domain.EventInput{Kind: domain.InputNone},
		})
	case domain.OccurrenceSubscription:
		return m.matchUnconditional(ctx, occ, domain.TriggerTypeSubscription, domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:   domain.InputSub,
				Tier:   occ.Tier,
				IsGift: occ.IsGift,
			},
		})
	case domain.OccurrenceGiftedSubscription:
		return m.matchUnconditional(ctx, occ, domain.TriggerTypeGiftedSubscription, domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:      domain.InputGiftSub,
				Tier:      occ.Tier,
				Total:     occ.Total,
				Anonymous: occ.Anonymous,
			},
		})
	case domain.OccurrenceReSubscription:
		// Resubscriptions are subscription notifications; they match
		// the same trigger kind with richer input data.
		return m.matchUnconditional(ctx, occ, domain.TriggerTypeSubscription, domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:             domain.InputReSub,
				Tier:             occ.Tier,
				CumulativeMonths: occ.CumulativeMonths,
				DurationMonths:   occ.DurationMonths,
				Message:          occ.Message,
			},
		})
	case domain.OccurrenceChatMessage:
		return m.matchChat(ctx, occ)
	case domain.OccurrenceRaid:
		return m.matchRaid(ctx, occ)
	case domain.OccurrenceAdBreakBegin:
		return m.matchUnconditional(ctx, occ, domain.TriggerTypeAdBreakBegin, domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:            domain.InputAdBreak,
				DurationSeconds: occ.DurationSeconds,
			},
		})
	case domain.OccurrenceShoutoutReceive:
		return m.matchShoutout(ctx, occ)
	case domain.OccurrenceTimerFired:
		return m.matchTimer(ctx, occ)
	default:
		return MatchSet{}, fmt.Errorf("%w: %s", ErrUnmatchableOccurrence, occ.Kind)
	}
}

func (m *Matcher) matchRedeem(ctx context.Context, occ domain.Occurrence) (MatchSet, error) {
	events, err := m.store.GetEventsByTriggerType(ctx, domain.TriggerTypeRedeem)
	if err != nil {
		return MatchSet{}, fmt.Errorf("get redeem events: %w", err)
	}

	matched := events[:0:0]
	for _, event := range events {
		if event.Config.Trigger.RewardID == occ.RewardID {
			matched = append(matched, event)
		}
	}

	return MatchSet{
		EventData: domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:         domain.InputRedeem,
				RedemptionID: occ.RedemptionID,
				RewardID:     occ.RewardID,
				RewardName:   occ.RewardName,
				RewardCost:   occ.RewardCost,
				UserInput:    occ.UserInput,
			},
		},
		Events: matched,
	}, nil
}

func (m *Matcher) matchCheerBits(ctx context.Context, occ domain.Occurrence) (MatchSet, error) {
	events, err := m.store.GetEventsByTriggerType(ctx, domain.TriggerTypeBits)
	if err != nil {
		return MatchSet{}, fmt.Errorf("get bits events: %w", err)
	}

	matched := events[:0:0]
	for _, event := range events {
		if occ.Bits >= event.Config.Trigger.MinBits {
			matched = append(matched, event)
		}
	}

	return MatchSet{
		EventData: domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:      domain.InputBits,
				Bits:      occ.Bits,
				Anonymous: occ.Anonymous,
				Message:   occ.Message,
			},
		},
		Events: matched,
	}, nil
}

func (m *Matcher) matchUnconditional(ctx context.Context, occ domain.Occurrence, trigger domain.TriggerType, data domain.EventData) (MatchSet, error) {
	events, err := m.store.GetEventsByTriggerType(ctx, trigger)
	if err != nil {
		return MatchSet{}, fmt.Errorf("get %s events: %w", trigger, err)
	}
	return MatchSet{EventData: data, Events: events}, nil
}

// matchChat matches chat commands and command-phrase event automations
// against the first whitespace-delimited token, lower-cased.
func (m *Matcher) matchChat(ctx context.Context, occ domain.Occurrence) (MatchSet, error) {
	var cheer *int64
	if occ.Bits > 0 {
		bits := occ.Bits
		cheer = &bits
	}

	set := MatchSet{
		EventData: domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:      domain.InputChat,
				MessageID: occ.MessageID,
				Message:   occ.Message,
				Cheer:     cheer,
			},
		},
	}

	fields := strings.Fields(occ.Message)
	if len(fields) == 0 {
		return set, nil
	}
	token := strings.ToLower(fields[0])
	args := fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(occ.Message), fields[0]))

	commands, err := m.store.GetCommandsByTrigger(ctx, token)
	if err != nil {
		return MatchSet{}, fmt.Errorf("get commands by trigger: %w", err)
	}
	for _, command := range commands {
		set.Commands = append(set.Commands, CommandWithContext{
			Command: command,
			Message: rest,
			Args:    args,
		})
	}

	events, err := m.store.GetEventsByTriggerType(ctx, domain.TriggerTypeCommand)
	if err != nil {
		return MatchSet{}, fmt.Errorf("get command events: %w", err)
	}
	for _, event := range events {
		if strings.ToLower(event.Config.Trigger.Message) == token {
			set.Events = append(set.Events, event)
		}
	}

	return set, nil
}

func (m *Matcher) matchRaid(ctx context.Context, occ domain.Occurrence) (MatchSet, error) {
	events, err := m.store.GetEventsByTriggerType(ctx, domain.TriggerTypeRaid)
	if err != nil {
		return MatchSet{}, fmt.Errorf("get raid events: %w", err)
	}

	matched := events[:0:0]
	for _, event := range events {
		if occ.Viewers >= event.Config.Trigger.MinRaiders {
			matched = append(matched, event)
		}
	}

	return MatchSet{
		EventData: domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:    domain.InputRaid,
				Viewers: occ.Viewers,
			},
		},
		Events: matched,
	}, nil
}

func (m *Matcher) matchShoutout(ctx context.Context, occ domain.Occurrence) (MatchSet, error) {
	events, err := m.store.GetEventsByTriggerType(ctx, domain.TriggerTypeShoutoutReceive)
	if err != nil {
		return MatchSet{}, fmt.Errorf("get shoutout events: %w", err)
	}

	matched := events[:0:0]
	for _, event := range events {
		if occ.Viewers >= event.Config.Trigger.MinViewers {
			matched = append(matched, event)
		}
	}

	return MatchSet{
		EventData: domain.EventData{
			User: occ.User,
			Input: domain.EventInput{
				Kind:    domain.InputShoutout,
				Viewers: occ.Viewers,
			},
		},
		Events: matched,
	}, nil
}

// matchTimer looks up the fired automation directly by id. A removed,
// disabled, or retyped automation is an empty match, never an error.
func (m *Matcher) matchTimer(ctx context.Context, occ domain.Occurrence) (MatchSet, error) {
	set := MatchSet{
		EventData: domain.EventData{
			Input: domain.EventInput{Kind: domain.InputNone},
		},
	}

	event, err := m.store.GetEventByID(ctx, occ.EventID)
	if err != nil {
		m.log.Debugw("matching: timer fired for unknown automation",
			"event_id", occ.EventID, "error", err)
		return set, nil
	}
	if !event.Enabled || event.Config.Trigger.Type != domain.TriggerTypeTimer {
		return set, nil
	}

	if min := event.Config.Trigger.MinChatMessages; min > 0 {
		ok, err := m.chatActivitySince(ctx, event, min)
		if err != nil {
			return MatchSet{}, err
		}
		if !ok {
			m.log.Debugw("matching: skipping quiet timer", "event_id", event.ID)
			return set, nil
		}
	}

	set.Events = append(set.Events, event)
	return set, nil
}

// chatActivitySince reports whether at least min chat messages arrived
// since the automation last fired. With no prior firing all history
// counts.
func (m *Matcher) chatActivitySince(ctx context.Context, event domain.Event, min int64) (bool, error) {
	since := time.Time{}
	last, err := m.store.GetLastExecution(ctx, event.ID, 0)
	if err != nil {
		return false, fmt.Errorf("get last execution: %w", err)
	}
	if last != nil {
		since = last.CreatedAt
	}

	count, err := m.store.CountChatMessagesSince(ctx, since)
	if err != nil {
		return false, fmt.Errorf("count chat messages: %w", err)
	}
	return count >= min, nil
}
