package model

import "time"

// User holds per-user delivery preferences. The ID is the Telegram chat id.
type User struct {
	ID        int64 `gorm:"primaryKey"`
	TextMode  bool  `gorm:"not null;default:false"` // text schedule instead of rendered image
	CreatedAt time.Time
	UpdatedAt time.Time
}
