package domain

// OverlayMessageType tags a render instruction for the overlay.
type OverlayMessageType string

const (
	OverlayThrowItem          OverlayMessageType = "throw_item"
	OverlayPlaySound          OverlayMessageType = "play_sound"
	OverlayTriggerHotkey      OverlayMessageType = "trigger_hotkey"
	OverlaySetCalibrationStep OverlayMessageType = "set_calibration_step"
)

// ThrowConfig is the amount policy of a throw, already resolved.
type ThrowConfig struct {
	Shape ThrowShape `json:"shape"`

	// Total items to throw.
	Amount int64 `json:"amount"`

	// Barrage only.
	AmountPerThrow int64 `json:"amount_per_throw,omitempty"`
	FrequencyMs    int64 `json:"frequency,omitempty"`
}

// OverlayMessage is a resolved, ready-to-send render instruction. It is
// handed to the outbound channel; the presentation transport is outside
// this core.
type OverlayMessage struct {
	Type OverlayMessageType `json:"type"`

	// ThrowItem
	Items  *ItemsWithSounds `json:"items,omitempty"`
	Config *ThrowConfig     `json:"config,omitempty"`

	// PlaySound
	Sound *Sound `json:"sound,omitempty"`

	// TriggerHotkey
	HotkeyID string `json:"hotkey_id,omitempty"`

	// SetCalibrationStep
	CalibrationStep string `json:"calibration_step,omitempty"`
}
