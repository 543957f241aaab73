// Package outcome resolves gated automation outcomes into their side
// effects: overlay throw/sound/hotkey instructions, chat messages, and
// script runs.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
	"github.com/vtftk/app/internal/script"
	"github.com/vtftk/app/internal/twitch"
)

var (
	ErrMissingPayload = errors.New("outcome payload missing for its type")
	ErrNoThrowables   = errors.New("no throwable items resolved")
)

// Store is the asset surface the resolver reads.
type Store interface {
	GetItemsByIDsWithImpactSounds(ctx context.Context, ids []uuid.UUID) ([]domain.ItemWithImpactSounds, error)
	GetSoundsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Sound, error)
	GetSoundByID(ctx context.Context, id uuid.UUID) (domain.Sound, error)
}

// OverlaySender delivers resolved render instructions to the overlay.
type OverlaySender interface {
	Emit(ctx context.Context, msg domain.OverlayMessage) error
}

// ChatSender sends chat text, splitting it to fit platform limits.
type ChatSender interface {
	SendChunked(ctx context.Context, text string) error
}

// EmoteSource lists the channel emotes of a user.
type EmoteSource interface {
	GetChannelEmotes(ctx context.Context, userID string) ([]twitch.Emote, error)
}

// Resolver turns outcomes into side effects.
type Resolver struct {
	store   Store
	overlay OverlaySender
	chat    ChatSender
	emotes  EmoteSource
	scripts script.Executor
	log     *zap.SugaredLogger
}

func New(store Store, overlay OverlaySender, chat ChatSender, emotes EmoteSource, scripts script.Executor, log *zap.SugaredLogger) *Resolver {
	return &Resolver{
		store:   store,
		overlay: overlay,
		chat:    chat,
		emotes:  emotes,
		scripts: scripts,
		log:     log,
	}
}

// ResolveEvent produces the side effect of one event automation outcome.
func (r *Resolver) ResolveEvent(ctx context.Context, outcome domain.Outcome, data domain.EventData) error {
	switch outcome.Type {
	case domain.OutcomeTypeThrowable:
		if outcome.Throwable == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, outcome.Type)
		}
		return r.throwItems(ctx, outcome.Throwable.ThrowableIDs, outcome.Throwable.Amount, data.Input)

	case domain.OutcomeTypeThrowBits:
		if outcome.ThrowBits == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, outcome.Type)
		}
		return r.throwBits(ctx, *outcome.ThrowBits, data.Input)

	case domain.OutcomeTypeChannelEmotes:
		if outcome.ChannelEmotes == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, outcome.Type)
		}
		return r.throwChannelEmotes(ctx, *outcome.ChannelEmotes, data)

	case domain.OutcomeTypeTriggerHotkey:
		if outcome.TriggerHotkey == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, outcome.Type)
		}
		return r.overlay.Emit(ctx, domain.OverlayMessage{
			Type:     domain.OverlayTriggerHotkey,
			HotkeyID: outcome.TriggerHotkey.HotkeyID,
		})

	case domain.OutcomeTypePlaySound:
		if outcome.PlaySound == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, outcome.Type)
		}
		return r.playSound(ctx, outcome.PlaySound.SoundID)

	case domain.OutcomeTypeSendChat:
		if outcome.SendChat == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, outcome.Type)
		}
		return r.chat.SendChunked(ctx, RenderTemplate(outcome.SendChat.Template, data, nil))

	case domain.OutcomeTypeScript:
		if outcome.Script == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, outcome.Type)
		}
		return r.scripts.Execute(ctx, outcome.Script.Script, script.Context{
			User:  data.User,
			Input: data.Input,
		})

	default:
		return fmt.Errorf("unknown outcome type %q", outcome.Type)
	}
}

// ResolveCommand produces the side effect of one chat command.
func (r *Resolver) ResolveCommand(ctx context.Context, out domain.CommandOutcome, data domain.EventData, message string, args []string) error {
	switch out.Type {
	case domain.CommandOutcomeTemplate:
		return r.chat.SendChunked(ctx, RenderTemplate(out.Template, data, args))
	case domain.CommandOutcomeScript:
		return r.scripts.Execute(ctx, out.Script, script.Context{
			User:    data.User,
			Input:   data.Input,
			Message: message,
			Args:    args,
		})
	default:
		return fmt.Errorf("unknown command outcome type %q", out.Type)
	}
}

func (r *Resolver) throwItems(ctx context.Context, ids []uuid.UUID, amount domain.ThrowAmount, input domain.EventInput) error {
	items, err := r.loadItemsWithSounds(ctx, ids)
	if err != nil {
		return err
	}
	if len(items.Items) == 0 {
		return ErrNoThrowables
	}

	config := resolveThrowConfig(amount, input)
	return r.overlay.Emit(ctx, domain.OverlayMessage{
		Type:   domain.OverlayThrowItem,
		Items:  &items,
		Config: &config,
	})
}

// loadItemsWithSounds resolves throwable items plus every impact sound
// any of them reference.
func (r *Resolver) loadItemsWithSounds(ctx context.Context, ids []uuid.UUID) (domain.ItemsWithSounds, error) {
	items, err := r.store.GetItemsByIDsWithImpactSounds(ctx, ids)
	if err != nil {
		return domain.ItemsWithSounds{}, fmt.Errorf("load throwables: %w", err)
	}

	seen := make(map[uuid.UUID]struct{})
	var soundIDs []uuid.UUID
	for _, item := range items {
		for _, soundID := range item.ImpactSoundIDs {
			if _, ok := seen[soundID]; ok {
				continue
			}
			seen[soundID] = struct{}{}
			soundIDs = append(soundIDs, soundID)
		}
	}

	var sounds []domain.Sound
	if len(soundIDs) > 0 {
		sounds, err = r.store.GetSoundsByIDs(ctx, soundIDs)
		if err != nil {
			return domain.ItemsWithSounds{}, fmt.Errorf("load impact sounds: %w", err)
		}
	}

	return domain.ItemsWithSounds{Items: items, ImpactSounds: sounds}, nil
}

func (r *Resolver) throwBits(ctx context.Context, out domain.OutcomeThrowBits, input domain.EventInput) error {
	tier := bitsTier(bitsAmount(input))

	if id := configuredBitsIcon(out, tier); id != nil {
		items, err := r.loadItemsWithSounds(ctx, []uuid.UUID{*id})
		if err != nil {
			return err
		}
		if len(items.Items) > 0 {
			config := resolveThrowConfig(out.Amount, input)
			return r.overlay.Emit(ctx, domain.OverlayMessage{
				Type:   domain.OverlayThrowItem,
				Items:  &items,
				Config: &config,
			})
		}
		r.log.Warnw("outcome: configured bits icon missing, using default", "item_id", *id)
	}

	items := domain.ItemsWithSounds{Items: []domain.ItemWithImpactSounds{defaultBitsIcon(tier)}}
	config := resolveThrowConfig(out.Amount, input)
	return r.overlay.Emit(ctx, domain.OverlayMessage{
		Type:   domain.OverlayThrowItem,
		Items:  &items,
		Config: &config,
	})
}

func (r *Resolver) throwChannelEmotes(ctx context.Context, out domain.OutcomeChannelEmotes, data domain.EventData) error {
	if data.User == nil {
		return ErrNoThrowables
	}
	emotes, err := r.emotes.GetChannelEmotes(ctx, data.User.ID)
	if err != nil {
		return fmt.Errorf("get channel emotes: %w", err)
	}
	if len(emotes) == 0 {
		return ErrNoThrowables
	}

	items := domain.ItemsWithSounds{Items: make([]domain.ItemWithImpactSounds, 0, len(emotes))}
	for _, emote := range emotes {
		items.Items = append(items.Items, domain.ItemWithImpactSounds{
			Item: domain.Item{
				Name: emote.Name,
				Image: domain.ItemImage{
					Src:    emote.ImageURL,
					Weight: 1,
					Scale:  1,
				},
			},
		})
	}

	config := resolveThrowConfig(out.Amount, data.Input)
	return r.overlay.Emit(ctx, domain.OverlayMessage{
		Type:   domain.OverlayThrowItem,
		Items:  &items,
		Config: &config,
	})
}

func (r *Resolver) playSound(ctx context.Context, id uuid.UUID) error {
	sound, err := r.store.GetSoundByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load sound: %w", err)
	}
	return r.overlay.Emit(ctx, domain.OverlayMessage{
		Type:  domain.OverlayPlaySound,
		Sound: &sound,
	})
}

// resolveThrowConfig fixes the throw amount, deriving it from the
// triggering input when configured.
func resolveThrowConfig(amount domain.ThrowAmount, input domain.EventInput) domain.ThrowConfig {
	total := amount.Amount
	if amount.UseInputAmount {
		cfg := amount.InputAmountConfig
		if cfg.Multiplier == 0 && cfg.Range == (domain.MinMax{}) {
			cfg = domain.DefaultInputAmountConfig()
		}
		total = deriveAmount(inputAmount(input), cfg)
	}
	return domain.ThrowConfig{
		Shape:          amount.Shape,
		Amount:         total,
		AmountPerThrow: amount.AmountPerThrow,
		FrequencyMs:    amount.FrequencyMs,
	}
}

// deriveAmount scales then clamps the occurrence-derived input value.
func deriveAmount(input int64, cfg domain.InputAmountConfig) int64 {
	scaled := int64(math.Floor(float64(input) * cfg.Multiplier))
	if scaled < cfg.Range.Min {
		return cfg.Range.Min
	}
	if scaled > cfg.Range.Max {
		return cfg.Range.Max
	}
	return scaled
}

// inputAmount extracts the numeric magnitude of an occurrence.
func inputAmount(input domain.EventInput) int64 {
	switch input.Kind {
	case domain.InputBits:
		return input.Bits
	case domain.InputChat:
		if input.Cheer != nil {
			return *input.Cheer
		}
		return 1
	case domain.InputGiftSub:
		return input.Total
	case domain.InputRaid, domain.InputShoutout:
		return input.Viewers
	case domain.InputReSub:
		return input.CumulativeMonths
	default:
		return 1
	}
}

func bitsAmount(input domain.EventInput) int64 {
	if input.Kind == domain.InputChat && input.Cheer != nil {
		return *input.Cheer
	}
	return input.Bits
}

// bitsTier maps a cheered amount to its icon tier index 0-4.
func bitsTier(bits int64) int {
	switch {
	case bits >= 10000:
		return 4
	case bits >= 5000:
		return 3
	case bits >= 1000:
		return 2
	case bits >= 100:
		return 1
	default:
		return 0
	}
}

// configuredBitsIcon walks downward from the matched tier to the first
// icon the outcome configures.
func configuredBitsIcon(out domain.OutcomeThrowBits, tier int) *uuid.UUID {
	icons := [5]*uuid.UUID{out.Icon1, out.Icon100, out.Icon1000, out.Icon5000, out.Icon10000}
	for i := tier; i >= 0; i-- {
		if icons[i] != nil {
			return icons[i]
		}
	}
	return nil
}

var defaultBitsIconNames = [5]string{"1", "100", "1000", "5000", "10000"}

// defaultBitsIcon is the built-in icon used when no tier is configured.
func defaultBitsIcon(tier int) domain.ItemWithImpactSounds {
	name := defaultBitsIconNames[tier]
	return domain.ItemWithImpactSounds{
		Item: domain.Item{
			Name: "bits-" + name,
			Image: domain.ItemImage{
				Src:    "builtin://bits/" + name + ".png",
				Weight: 1,
				Scale:  1,
			},
		},
	}
}

// RenderTemplate substitutes event placeholders into a chat template.
// Placeholders the trigger kind never sets render as empty strings;
// numeric fields the kind does carry render zero as "0".
func RenderTemplate(template string, data domain.EventData, args []string) string {
	var userName string
	if data.User != nil {
		userName = data.User.DisplayName
		if userName == "" {
			userName = data.User.Name
		}
	}

	toUser := userName
	if len(args) > 0 {
		toUser = strings.TrimPrefix(args[0], "@")
	}

	input := data.Input
	kind := input.Kind
	replacer := strings.NewReplacer(
		"$(user)", userName,
		"$(touser)", toUser,
		"$(reward_name)", input.RewardName,
		"$(reward_cost)", formatInt(input.RewardCost, kind == domain.InputRedeem),
		"$(user_input)", input.UserInput,
		"$(bits)", formatInt(bitsAmount(input), kind == domain.InputBits || (kind == domain.InputChat && input.Cheer != nil)),
		"$(duration)", formatInt(input.DurationSeconds, kind == domain.InputAdBreak),
		"$(tier)", input.Tier.Name(),
		"$(total)", formatInt(input.Total, kind == domain.InputGiftSub),
		"$(cumulative_months)", formatInt(input.CumulativeMonths, kind == domain.InputReSub),
		"$(duration_months)", formatInt(input.DurationMonths, kind == domain.InputReSub),
		"$(viewers)", formatInt(input.Viewers, kind == domain.InputRaid || kind == domain.InputShoutout),
	)
	return replacer.Replace(template)
}

// formatInt renders a numeric placeholder. set marks fields the trigger
// kind carries: those render zero as "0", anything else renders zero as
// an empty string.
func formatInt(v int64, set bool) string {
	if v == 0 && !set {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
