package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vtftk/app/internal/domain"
)

func validateEventRequest(req EventRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}

	trigger := req.Config.Trigger
	switch trigger.Type {
	case domain.TriggerTypeRedeem:
		if trigger.RewardID == "" {
			return errors.New("redeem trigger requires reward_id")
		}
	case domain.TriggerTypeCommand:
		if strings.TrimSpace(trigger.Message) == "" {
			return errors.New("command trigger requires message")
		}
	case domain.TriggerTypeTimer:
		if trigger.IntervalSeconds <= 0 {
			return errors.New("timer trigger requires a positive interval")
		}
		if trigger.MinChatMessages < 0 {
			return errors.New("min_chat_messages must not be negative")
		}
	case domain.TriggerTypeBits, domain.TriggerTypeRaid, domain.TriggerTypeShoutoutReceive,
		domain.TriggerTypeFollow, domain.TriggerTypeSubscription,
		domain.TriggerTypeGiftedSubscription, domain.TriggerTypeAdBreakBegin:
	default:
		return fmt.Errorf("unknown trigger type %q", trigger.Type)
	}

	if err := validateOutcome(req.Config.Outcome); err != nil {
		return err
	}
	if req.Config.Cooldown.DurationMs < 0 {
		return errors.New("cooldown duration must not be negative")
	}
	if req.Config.OutcomeDelayMs < 0 {
		return errors.New("outcome delay must not be negative")
	}
	return validateRole(req.Config.RequireRole)
}

func validateRole(role domain.MinimumRole) error {
	switch role {
	case domain.RoleNone, domain.RoleFollower, domain.RoleVip,
		domain.RoleMod, domain.RoleBroadcaster:
		return nil
	default:
		return fmt.Errorf("unknown minimum role %q", role)
	}
}

func validateOutcome(outcome domain.Outcome) error {
	var payload bool
	switch outcome.Type {
	case domain.OutcomeTypeThrowBits:
		payload = outcome.ThrowBits != nil
	case domain.OutcomeTypeThrowable:
		payload = outcome.Throwable != nil && len(outcome.Throwable.ThrowableIDs) > 0
	case domain.OutcomeTypeTriggerHotkey:
		payload = outcome.TriggerHotkey != nil && outcome.TriggerHotkey.HotkeyID != ""
	case domain.OutcomeTypePlaySound:
		payload = outcome.PlaySound != nil
	case domain.OutcomeTypeSendChat:
		payload = outcome.SendChat != nil && outcome.SendChat.Template != ""
	case domain.OutcomeTypeScript:
		payload = outcome.Script != nil && outcome.Script.Script != ""
	case domain.OutcomeTypeChannelEmotes:
		payload = outcome.ChannelEmotes != nil
	default:
		return fmt.Errorf("unknown outcome type %q", outcome.Type)
	}
	if !payload {
		return fmt.Errorf("outcome %q is missing its payload", outcome.Type)
	}
	return nil
}

func validateCommandRequest(req CommandRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	token := strings.TrimSpace(req.Command)
	if token == "" {
		return errors.New("command is required")
	}
	if strings.ContainsAny(token, " \t") {
		return errors.New("command must be a single token")
	}
	for _, alias := range req.Aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" || strings.ContainsAny(alias, " \t") {
			return errors.New("aliases must be single non-empty tokens")
		}
	}

	switch req.Outcome.Type {
	case domain.CommandOutcomeTemplate:
		if req.Outcome.Template == "" {
			return errors.New("template outcome requires a template")
		}
	case domain.CommandOutcomeScript:
		if req.Outcome.Script == "" {
			return errors.New("script outcome requires a script")
		}
	default:
		return fmt.Errorf("unknown command outcome type %q", req.Outcome.Type)
	}

	if req.Cooldown.DurationMs < 0 {
		return errors.New("cooldown duration must not be negative")
	}
	return validateRole(req.RequireRole)
}
