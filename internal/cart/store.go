package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novashop/novashop-backend/pkg/db/models"
)

// Store is the transactional cart surface consumed by checkout. It exists
// so the order lifecycle can read and clear a cart inside its own
// transaction without owning cart internals.
type Store struct {
	repo Repository
}

// NewStore builds a Store over the cart repository.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// LoadForUser returns the user's cart, creating an empty one if absent.
func (s *Store) LoadForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.CartRecord, error) {
	return s.repo.WithTx(tx).FindOrCreateByUser(ctx, userID)
}

// Clear removes every item from the cart. Clearing an already empty cart
// is a no-op.
func (s *Store) Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	return s.repo.WithTx(tx).ClearItems(ctx, cartID)
}
