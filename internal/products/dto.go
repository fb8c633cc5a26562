package products

import (
	"github.com/google/uuid"

	"github.com/novashop/novashop-backend/pkg/db/models"
)

// Rating is the aggregate maintained by the reviews collaborator.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// View is the catalog read model served to clients and cached.
type View struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Rating      Rating    `json:"rating"`
	IsActive    bool      `json:"isActive"`
}

func viewFromModel(product *models.Product) *View {
	return &View{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
		Stock:       product.Stock,
		Rating: Rating{
			Average: product.RatingAvg,
			Count:   product.RatingCount,
		},
		IsActive: product.IsActive,
	}
}
