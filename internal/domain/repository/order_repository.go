package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/entity"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
)

// OrderRepository is the order store collaborator.
type OrderRepository interface {
	// FindOrder loads the order with its line items, or (nil, nil)
	FindOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// UpdateOrderBalance writes the four derived balance fields in one statement
	UpdateOrderBalance(ctx context.Context, id uuid.UUID, balance entity.OrderBalance) error
}
