package kv

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/cloudcore-storefront/pkg/db/models"
)

type sqlClient interface {
	DB() *gorm.DB
	Ping(ctx context.Context) error
}

// SQL persists snapshots in the cart_snapshots table (see pkg/migrate).
type SQL struct {
	client sqlClient
	now    func() time.Time
}

// NewSQL builds a Store on top of the shared GORM client.
func NewSQL(client sqlClient) *SQL {
	return &SQL{client: client, now: time.Now}
}

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var row models.CartSnapshot
	err := s.client.DB().WithContext(ctx).
		Where("cart_key = ?", key).
		Where("expires_at IS NULL OR expires_at > ?", s.now().UTC()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Payload, nil
}

func (s *SQL) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now().UTC()
	row := models.CartSnapshot{
		Key:       key,
		Payload:   value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		row.ExpiresAt = &expires
	}
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	return s.client.DB().WithContext(ctx).
		Where("cart_key = ?", key).
		Delete(&models.CartSnapshot{}).Error
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// PurgeExpired drops snapshots whose TTL has elapsed and reports how many went.
func (s *SQL) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.client.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.CartSnapshot{})
	return res.RowsAffected, res.Error
}
