package domain

import (
	"github.com/google/uuid"
)

// OccurrenceKind tags a raw inbound occurrence on the dispatcher queue.
type OccurrenceKind string

const (
	OccurrenceRedeem             OccurrenceKind = "redeem"
	OccurrenceCheerBits          OccurrenceKind = "cheer_bits"
	OccurrenceFollow             OccurrenceKind = "follow"
	OccurrenceSubscription       OccurrenceKind = "subscription"
	OccurrenceGiftedSubscription OccurrenceKind = "gifted_subscription"
	OccurrenceReSubscription     OccurrenceKind = "re_subscription"
	OccurrenceChatMessage        OccurrenceKind = "chat_message"
	OccurrenceRaid               OccurrenceKind = "raid"
	OccurrenceAdBreakBegin       OccurrenceKind = "ad_break_begin"
	OccurrenceShoutoutReceive    OccurrenceKind = "shoutout_receive"
	OccurrenceTimerFired         OccurrenceKind = "timer_fired"

	// Control signals handled inline by the dispatcher, never matched.
	OccurrenceModeratorsChanged OccurrenceKind = "moderators_changed"
	OccurrenceVipsChanged       OccurrenceKind = "vips_changed"
	OccurrenceRewardsChanged    OccurrenceKind = "rewards_changed"
	OccurrenceClientReset       OccurrenceKind = "client_reset"
	OccurrenceClientLoggedIn    OccurrenceKind = "client_logged_in"
	OccurrenceClientLoggedOut   OccurrenceKind = "client_logged_out"
)

// Occurrence is one raw inbound event before normalization. Kind selects
// which payload fields carry meaning.
type Occurrence struct {
	Kind OccurrenceKind
	User *TwitchUser

	// Redeem
	RedemptionID string
	RewardID     string
	RewardName   string
	RewardCost   int64
	UserInput    string

	// CheerBits / ChatMessage cheer
	Bits      int64
	Anonymous bool

	// Subscription / ReSubscription
	Tier   SubscriptionTier
	IsGift bool

	// GiftedSubscription
	Total int64

	// ReSubscription
	CumulativeMonths int64
	DurationMonths   int64

	// ChatMessage / CheerBits message body
	MessageID string
	Message   string

	// Raid / ShoutoutReceive
	Viewers int64

	// AdBreakBegin
	DurationSeconds int64

	// TimerFired
	EventID uuid.UUID
}

// IsControl reports whether the occurrence is an internal control signal
// that bypasses matching.
func (o Occurrence) IsControl() bool {
	switch o.Kind {
	case OccurrenceModeratorsChanged, OccurrenceVipsChanged,
		OccurrenceRewardsChanged, OccurrenceClientReset,
		OccurrenceClientLoggedIn, OccurrenceClientLoggedOut:
		return true
	default:
		return false
	}
}

// InputKind tags the trigger-specific payload of canonical event data.
type InputKind string

const (
	InputNone     InputKind = "none"
	InputRedeem   InputKind = "redeem"
	InputBits     InputKind = "bits"
	InputSub      InputKind = "subscription"
	InputGiftSub  InputKind = "gifted_subscription"
	InputReSub    InputKind = "re_subscription"
	InputChat     InputKind = "chat"
	InputRaid     InputKind = "raid"
	InputAdBreak  InputKind = "ad_break"
	InputShoutout InputKind = "shoutout"
)

// EventInput is the trigger-specific payload of canonical event data.
// Snapshots of this struct are stored with each execution record.
type EventInput struct {
	Kind InputKind `json:"kind"`

	// Redeem
	RedemptionID string `json:"redemption_id,omitempty"`
	RewardID     string `json:"reward_id,omitempty"`
	RewardName   string `json:"reward_name,omitempty"`
	RewardCost   int64  `json:"reward_cost,omitempty"`
	UserInput    string `json:"user_input,omitempty"`

	// Bits
	Bits      int64 `json:"bits,omitempty"`
	Anonymous bool  `json:"anonymous,omitempty"`

	// Subscription family
	Tier             SubscriptionTier `json:"tier,omitempty"`
	IsGift           bool             `json:"is_gift,omitempty"`
	Total            int64            `json:"total,omitempty"`
	CumulativeMonths int64            `json:"cumulative_months,omitempty"`
	DurationMonths   int64            `json:"duration_months,omitempty"`

	// Chat
	MessageID string `json:"message_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Cheer     *int64 `json:"cheer,omitempty"`

	// Raid / Shoutout
	Viewers int64 `json:"viewers,omitempty"`

	// Ad break
	DurationSeconds int64 `json:"duration_seconds,omitempty"`
}

// EventData is the canonical representation of one occurrence,
// independent of its original transport shape.
type EventData struct {
	User  *TwitchUser `json:"user,omitempty"`
	Input EventInput  `json:"input_data"`
}
