package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novashop/novashop-backend/pkg/cache"
	pkgerrors "github.com/novashop/novashop-backend/pkg/errors"
	"github.com/novashop/novashop-backend/pkg/logger"
)

const cacheKeyPrefix = "product"

// Service serves catalog reads through a TTL cache and owns invalidation
// of that cache on catalog writes. Stock changes made by the order
// lifecycle do not invalidate; they age out with the TTL.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*View, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo  Repository
	store cache.Store
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService builds the catalog read service.
func NewService(repo Repository, store cache.Store, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	return &service{
		repo:  repo,
		store: store,
		ttl:   ttl,
		logg:  logg,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	key := cacheKey(id)
	if cached, ok, err := s.store.Get(ctx, key); err != nil {
		s.logWarn(ctx, "catalog cache read failed", err)
	} else if ok {
		var view View
		if err := json.Unmarshal([]byte(cached), &view); err == nil {
			return &view, nil
		}
		s.logWarn(ctx, "catalog cache entry corrupt", err)
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	view := viewFromModel(product)
	if payload, err := json.Marshal(view); err == nil {
		if err := s.store.Set(ctx, key, string(payload), s.ttl); err != nil {
			s.logWarn(ctx, "catalog cache write failed", err)
		}
	}
	return view, nil
}

func (s *service) Invalidate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return s.store.Invalidate(ctx, cacheKey(id))
}

func cacheKey(id uuid.UUID) string {
	return cacheKeyPrefix + ":" + id.String()
}

func (s *service) logWarn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	if err != nil {
		ctx = s.logg.WithField(ctx, "error", err.Error())
	}
	s.logg.Warn(ctx, msg)
}
