package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sound is a playable sound asset.
type Sound struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Src       string    `json:"src"`
	Volume    float64   `json:"volume"`
	Order     int64     `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a throwable item asset.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Image     ItemImage `json:"image"`
	Order     int64     `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemImage is the render configuration for a throwable image.
type ItemImage struct {
	Src      string  `json:"src"`
	Weight   float64 `json:"weight"`
	Scale    float64 `json:"scale"`
	Pixelate bool    `json:"pixelate"`
}

// ItemWithImpactSounds pairs an item with the sounds played on impact.
type ItemWithImpactSounds struct {
	Item
	ImpactSoundIDs []uuid.UUID `json:"impact_sound_ids"`
}

// ItemsWithSounds is a resolved set of items plus every impact sound any
// of them reference, ready for the overlay.
type ItemsWithSounds struct {
	Items        []ItemWithImpactSounds `json:"items"`
	ImpactSounds []Sound                `json:"impact_sounds"`
}
