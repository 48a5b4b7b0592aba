package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/gearshare/internal/model"
)

// NewItem is the body of POST /items.
type NewItem struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	PricePerDay float64 `json:"pricePerDay"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	OwnerID     int64   `json:"ownerId"`
}

// ItemRepo wraps the catalog endpoints under /items.
type ItemRepo struct{ api *Client }

func NewItemRepo(c *Client) *ItemRepo { return &ItemRepo{api: c} }

// List returns the whole catalog.
func (r *ItemRepo) List(ctx context.Context) ([]model.Item, error) {
	var out []model.Item
	if err := r.api.get(ctx, "/items", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search filters the catalog server-side. With no filters set it is the
// same call as List.
func (r *ItemRepo) Search(ctx context.Context, f model.SearchFilters) ([]model.Item, error) {
	path := "/items"
	if q := searchQuery(f); q != "" {
		path += "?" + q
	}
	var out []model.Item
	if err := r.api.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one item including its reviews.
func (r *ItemRepo) GetByID(ctx context.Context, id int64) (model.Item, error) {
	var out model.Item
	err := r.api.get(ctx, fmt.Sprintf("/items/%d", id), &out)
	return out, err
}

// Create lists a new item for its owner.
func (r *ItemRepo) Create(ctx context.Context, it NewItem) (model.Item, error) {
	var out model.Item
	err := r.api.post(ctx, "/items", it, &out)
	return out, err
}

// ListByOwner returns the listings of one owner.
func (r *ItemRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error) {
	var out []model.Item
	if err := r.api.get(ctx, fmt.Sprintf("/items/owner/%d", ownerID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a listing. There is no undo.
func (r *ItemRepo) Delete(ctx context.Context, id int64) error {
	return r.api.delete(ctx, fmt.Sprintf("/items/%d", id))
}

// UpdatePrice changes the daily price. The backend expects the owner id in
// the query string and the price in the body.
func (r *ItemRepo) UpdatePrice(ctx context.Context, id int64, newPrice float64, ownerID int64) (model.Item, error) {
	body := map[string]float64{"newPrice": newPrice}
	var out model.Item
	err := r.api.patch(ctx, fmt.Sprintf("/items/%d/price?ownerId=%d", id, ownerID), body, &out)
	return out, err
}
