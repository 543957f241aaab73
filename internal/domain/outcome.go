package domain

import "github.com/google/uuid"

// OutcomeType discriminates the outcome variant of an event automation.
type OutcomeType string

const (
	OutcomeTypeThrowBits     OutcomeType = "throw_bits"
	OutcomeTypeThrowable     OutcomeType = "throwable"
	OutcomeTypeTriggerHotkey OutcomeType = "trigger_hotkey"
	OutcomeTypePlaySound     OutcomeType = "play_sound"
	OutcomeTypeSendChat      OutcomeType = "send_chat"
	OutcomeTypeScript        OutcomeType = "script"
	OutcomeTypeChannelEmotes OutcomeType = "channel_emotes"
)

// Outcome is the effect produced when a gated event automation fires.
// Type selects the variant; exactly one payload pointer is set.
type Outcome struct {
	Type OutcomeType `json:"type"`

	ThrowBits     *OutcomeThrowBits     `json:"throw_bits,omitempty"`
	Throwable     *OutcomeThrowable     `json:"throwable,omitempty"`
	TriggerHotkey *OutcomeTriggerHotkey `json:"trigger_hotkey,omitempty"`
	PlaySound     *OutcomePlaySound     `json:"play_sound,omitempty"`
	SendChat      *OutcomeSendChat      `json:"send_chat,omitempty"`
	Script        *OutcomeScript        `json:"script,omitempty"`
	ChannelEmotes *OutcomeChannelEmotes `json:"channel_emotes,omitempty"`
}

// ThrowShape selects between a single throw and a barrage.
type ThrowShape string

const (
	ThrowShapeAll     ThrowShape = "all"
	ThrowShapeBarrage ThrowShape = "barrage"
)

// MinMax is an inclusive clamp range.
type MinMax struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// InputAmountConfig scales an occurrence-derived amount (bits, raiders,
// gifted subs, ...) before clamping it into Range.
type InputAmountConfig struct {
	Multiplier float64 `json:"multiplier"`
	Range      MinMax  `json:"range"`
}

// DefaultInputAmountConfig mirrors the defaults applied to stored
// configs that predate input-amount derivation.
func DefaultInputAmountConfig() InputAmountConfig {
	return InputAmountConfig{Multiplier: 1, Range: MinMax{Min: 1, Max: 100}}
}

// ThrowAmount describes how many items to throw and in what shape.
type ThrowAmount struct {
	Shape ThrowShape `json:"shape"`

	// Total amount of items to throw.
	Amount int64 `json:"amount"`

	// Barrage only: items per sub-throw and milliseconds between them.
	AmountPerThrow int64 `json:"amount_per_throw,omitempty"`
	FrequencyMs    int64 `json:"frequency,omitempty"`

	// Derive Amount from the triggering occurrence instead of the
	// fixed value above.
	UseInputAmount    bool              `json:"use_input_amount,omitempty"`
	InputAmountConfig InputAmountConfig `json:"input_amount_config,omitempty"`
}

// OutcomeThrowBits throws a bits icon matching the cheered amount. Each
// tier override is optional; resolution walks down to the next configured
// tier and finally to the built-in icon set.
type OutcomeThrowBits struct {
	Icon1     *uuid.UUID  `json:"_1,omitempty"`
	Icon100   *uuid.UUID  `json:"_100,omitempty"`
	Icon1000  *uuid.UUID  `json:"_1000,omitempty"`
	Icon5000  *uuid.UUID  `json:"_5000,omitempty"`
	Icon10000 *uuid.UUID  `json:"_10000,omitempty"`
	Amount    ThrowAmount `json:"amount"`
}

// OutcomeThrowable throws a configured set of items.
type OutcomeThrowable struct {
	ThrowableIDs []uuid.UUID `json:"throwable_ids"`
	Amount       ThrowAmount `json:"amount"`
}

// OutcomeTriggerHotkey triggers a VTube Studio hotkey.
type OutcomeTriggerHotkey struct {
	HotkeyID string `json:"hotkey_id"`
}

// OutcomePlaySound plays a configured sound.
type OutcomePlaySound struct {
	SoundID uuid.UUID `json:"sound_id"`
}

// OutcomeSendChat sends a templated chat message.
type OutcomeSendChat struct {
	Template string `json:"template"`
}

// OutcomeScript runs a user script with the event context.
type OutcomeScript struct {
	Script string `json:"script"`
}

// OutcomeChannelEmotes throws the triggering user's channel emotes.
type OutcomeChannelEmotes struct {
	Amount ThrowAmount `json:"amount"`
}
