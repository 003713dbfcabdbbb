package app

import (
	"context"

	"github.com/christkv/copernicus/internal/domain"
)

// InventoryAdminRepository is the catalog surface for quantity-based
// resources.
type InventoryAdminRepository interface {
	CreateItem(ctx context.Context, item domain.InventoryItem) error
	GetItem(ctx context.Context, id string) (domain.InventoryItem, error)
}

// CatalogService manages the inventory catalog.
type CatalogService struct {
	items InventoryAdminRepository
}

func NewCatalogService(items InventoryAdminRepository) *CatalogService {
	return &CatalogService{items: items}
}

type CreateItemInput struct {
	ID       string
	Quantity int64
}

// CreateItem registers a resource with its full quantity available.
func (s *CatalogService) CreateItem(ctx context.Context, in CreateItemInput) (domain.InventoryItem, error) {
	if in.Quantity < 0 {
		return domain.InventoryItem{}, domain.ErrInvalidQuantity
	}

	item := domain.InventoryItem{
		ID:        in.ID,
		Available: in.Quantity,
		Holds:     []domain.Hold{},
	}
	if item.ID == "" {
		item.ID = newID()
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	return s.items.GetItem(ctx, id)
}
