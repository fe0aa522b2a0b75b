package model

import "time"

// SubscriptionKind is the notification channel a user subscribes to for an
// address. "today" and "tomorrow" are tracked independently.
type SubscriptionKind string

const (
	KindToday    SubscriptionKind = "today"
	KindTomorrow SubscriptionKind = "tomorrow"
)

// Valid reports whether k is one of the two known kinds.
func (k SubscriptionKind) Valid() bool {
	return k == KindToday || k == KindTomorrow
}

// Subscription links a Telegram user to an address for one day-kind.
type Subscription struct {
	ID        int64            `gorm:"autoIncrement;primaryKey"`
	UserID    int64            `gorm:"uniqueIndex:idx_sub_user_addr_kind;not null"`
	AddressID string           `gorm:"uniqueIndex:idx_sub_user_addr_kind;index;size:64;not null"`
	Kind      SubscriptionKind `gorm:"uniqueIndex:idx_sub_user_addr_kind;size:16;not null"`
	CreatedAt time.Time

	Address Address `gorm:"constraint:OnDelete:CASCADE"`
}
