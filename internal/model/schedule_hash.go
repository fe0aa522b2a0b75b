package model

import "time"

// ScheduleHash stores the last-notified content hash for one address and
// day-kind. An empty Hash is a valid value: it marks "no schedule for this
// day" after a previously seen one was removed.
type ScheduleHash struct {
	AddressID string           `gorm:"primaryKey;size:64"`
	Kind      SubscriptionKind `gorm:"primaryKey;size:16"`
	Hash      string           `gorm:"size:64;not null"`
	UpdatedAt time.Time
}
