package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novashop/novashop-backend/internal/products"
	"github.com/novashop/novashop-backend/pkg/db/models"
	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// catalogInvalidator drops cached catalog views after a rating change.
type catalogInvalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// CreateInput carries a new review submission.
type CreateInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Comment   *string
}

// Service records reviews and keeps the product rating aggregate current.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Review, error)
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
	catalog  catalogInvalidator
}

// NewService builds the reviews service. The catalog invalidator is
// optional; without it cached views age out on their own.
func NewService(repo Repository, productsRepo products.Repository, tx txRunner, catalog catalogInvalidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		products: productsRepo,
		tx:       tx,
		catalog:  catalog,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Review, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	review := &models.Review{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productsRepo := s.products.WithTx(tx)
		if _, err := productsRepo.FindByID(ctx, input.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		avg, count, err := repo.AggregateForProduct(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
		}

		rounded := math.Round(avg*10) / 10
		if err := productsRepo.UpdateRating(ctx, input.ProductID, rounded, count); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product rating")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		// The rating is already committed; a failed invalidation only
		// extends staleness until the TTL fires.
		_ = s.catalog.Invalidate(ctx, input.ProductID)
	}

	return review, nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	reviews, err := s.repo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return reviews, nil
}
