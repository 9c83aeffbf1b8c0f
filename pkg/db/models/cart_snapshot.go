package models

import "time"

// CartSnapshot is one persisted cart, keyed by its namespaced storage key. Payload
// holds the serialized line array verbatim; it is never parsed by the database.
type CartSnapshot struct {
	Key       string     `gorm:"column:cart_key;primaryKey;size:255"`
	Payload   string     `gorm:"column:payload;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
