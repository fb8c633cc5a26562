package models

import (
	"time"

	"github.com/google/uuid"
)

// CartRecord is the per-user cart. It is created lazily on first access and
// survives checkout; a successful order only empties its items.
type CartRecord struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps CartRecord onto the carts table created by the migrations.
func (CartRecord) TableName() string {
	return "carts"
}
