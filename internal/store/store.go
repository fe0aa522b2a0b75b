package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voe-monitor-backend/internal/model"
)

// Store defines the persistence operations used by the worker and the API.
type Store interface {
	// Subscriptions.
	AddSubscription(ctx context.Context, userID int64, addr model.Address, kind model.SubscriptionKind) error
	RemoveSubscription(ctx context.Context, userID int64, addressID string, kind model.SubscriptionKind) error
	GetSubscribers(ctx context.Context, addressID string, kind model.SubscriptionKind) ([]int64, error)
	GetUserSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error)
	GetAddressesWithSubscribers(ctx context.Context) ([]string, error)

	// Addresses.
	GetAddress(ctx context.Context, addressID string) (*model.Address, error)

	// Last-notified hashes, keyed by (address, kind).
	GetLastHash(ctx context.Context, addressID string, kind model.SubscriptionKind) (string, bool, error)
	SetLastHash(ctx context.Context, addressID string, kind model.SubscriptionKind, hash string) error

	// Users.
	IsTextModeEnabled(ctx context.Context, userID int64) bool
	SetTextMode(ctx context.Context, userID int64, enabled bool) error

	DB() *gorm.DB
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// AddSubscription upserts the address record and creates the subscription
// if it does not exist yet.
func (s *gormStore) AddSubscription(ctx context.Context, userID int64, addr model.Address, kind model.SubscriptionKind) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).Create(&addr).Error; err != nil {
			return fmt.Errorf("upsert address %s: %w", addr.ID, err)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Subscription{
			UserID:    userID,
			AddressID: addr.ID,
			Kind:      kind,
		}).Error; err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		return nil
	})
}

// RemoveSubscription deletes one subscription. When the address loses its
// last subscriber the stored hashes for it are deleted too, so a later
// re-subscription starts from a clean baseline.
func (s *gormStore) RemoveSubscription(ctx context.Context, userID int64, addressID string, kind model.SubscriptionKind) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND address_id = ? AND kind = ?", userID, addressID, kind).
			Delete(&model.Subscription{}).Error; err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}

		var remaining int64
		if err := tx.Model(&model.Subscription{}).
			Where("address_id = ?", addressID).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.Where("address_id = ?", addressID).
				Delete(&model.ScheduleHash{}).Error; err != nil {
				return fmt.Errorf("delete hashes for %s: %w", addressID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) GetSubscribers(ctx context.Context, addressID string, kind model.SubscriptionKind) ([]int64, error) {
	var userIDs []int64
	err := s.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("address_id = ? AND kind = ?", addressID, kind).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (s *gormStore) GetUserSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := s.db.WithContext(ctx).Preload("Address").
		Where("user_id = ?", userID).
		Order("address_id, kind").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// GetAddressesWithSubscribers returns every address id that has at least one
// subscriber of either kind.
func (s *gormStore) GetAddressesWithSubscribers(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.Subscription{}).
		Distinct("address_id").
		Pluck("address_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *gormStore) GetAddress(ctx context.Context, addressID string) (*model.Address, error) {
	var addr model.Address
	err := s.db.WithContext(ctx).First(&addr, "id = ?", addressID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (s *gormStore) GetLastHash(ctx context.Context, addressID string, kind model.SubscriptionKind) (string, bool, error) {
	var rec model.ScheduleHash
	err := s.db.WithContext(ctx).
		First(&rec, "address_id = ? AND kind = ?", addressID, kind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Hash, true, nil
}

func (s *gormStore) SetLastHash(ctx context.Context, addressID string, kind model.SubscriptionKind, hash string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"hash", "updated_at"}),
	}).Create(&model.ScheduleHash{
		AddressID: addressID,
		Kind:      kind,
		Hash:      hash,
	}).Error
}

// IsTextModeEnabled reports the user's delivery preference. Unknown users
// default to image delivery.
func (s *gormStore) IsTextModeEnabled(ctx context.Context, userID int64) bool {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return false
	}
	return user.TextMode
}

func (s *gormStore) SetTextMode(ctx context.Context, userID int64, enabled bool) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text_mode", "updated_at"}),
	}).Create(&model.User{ID: userID, TextMode: enabled}).Error
}
