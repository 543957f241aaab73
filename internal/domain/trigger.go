package domain

// TriggerType discriminates the trigger variant of an event automation.
// Stored alongside the config so the matcher can query by kind.
type TriggerType string

const (
	TriggerTypeRedeem             TriggerType = "redeem"
	TriggerTypeCommand            TriggerType = "command"
	TriggerTypeFollow             TriggerType = "follow"
	TriggerTypeSubscription       TriggerType = "subscription"
	TriggerTypeGiftedSubscription TriggerType = "gifted_subscription"
	TriggerTypeBits               TriggerType = "bits"
	TriggerTypeRaid               TriggerType = "raid"
	TriggerTypeTimer              TriggerType = "timer"
	TriggerTypeAdBreakBegin       TriggerType = "ad_break_begin"
	TriggerTypeShoutoutReceive    TriggerType = "shoutout_receive"
)

// Trigger is the condition that causes an event automation to be
// considered. Type selects the variant; only the fields for that variant
// are meaningful.
type Trigger struct {
	Type TriggerType `json:"type"`

	// Redeem: ID of the reward that must be redeemed.
	RewardID string `json:"reward_id,omitempty"`

	// Command: chat phrase that must be the first token of a message.
	Message string `json:"message,omitempty"`

	// Bits: minimum cheered bits required.
	MinBits int64 `json:"min_bits,omitempty"`

	// Raid: minimum raiders required.
	MinRaiders int64 `json:"min_raiders,omitempty"`

	// Timer: fixed interval in seconds, and the minimum number of chat
	// messages that must arrive between fires for the timer to trigger.
	IntervalSeconds int64 `json:"interval,omitempty"`
	MinChatMessages int64 `json:"min_chat_messages,omitempty"`

	// ShoutoutReceive: minimum viewers required.
	MinViewers int64 `json:"min_viewers,omitempty"`
}
