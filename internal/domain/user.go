package domain

// TwitchUser identifies the user that triggered an occurrence.
type TwitchUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// MinimumRole is the lowest role allowed to trigger an automation.
type MinimumRole string

const (
	RoleNone        MinimumRole = "none"
	RoleFollower    MinimumRole = "follower"
	RoleVip         MinimumRole = "vip"
	RoleMod         MinimumRole = "mod"
	RoleBroadcaster MinimumRole = "broadcaster"
)

// SubscriptionTier is the Twitch subscription tier identifier.
type SubscriptionTier string

const (
	TierOne   SubscriptionTier = "1000"
	TierTwo   SubscriptionTier = "2000"
	TierThree SubscriptionTier = "3000"
	TierPrime SubscriptionTier = "prime"
)

// Name returns the human readable tier name used in chat templates.
func (t SubscriptionTier) Name() string {
	switch t {
	case TierOne:
		return "Tier 1"
	case TierTwo:
		return "Tier 2"
	case TierThree:
		return "Tier 3"
	case TierPrime:
		return "Prime"
	default:
		return string(t)
	}
}
