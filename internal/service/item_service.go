package service

import (
	"context"
	"strings"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
)

// ListingInput is the "list an item" form.
type ListingInput struct {
	Name        string  `form:"name" validate:"required,max=120"`
	Category    string  `form:"category" validate:"required"`
	PricePerDay float64 `form:"pricePerDay" validate:"gt=0"`
	Location    string  `form:"location" validate:"required,max=120"`
	Description string  `form:"description" validate:"max=2000"`
	Condition   string  `form:"condition" validate:"required"`
	ImageURL    string  `form:"imageUrl" validate:"omitempty,url"`
}

// ItemService covers browsing and listing management.
type ItemService struct {
	items *repository.ItemRepo
}

func NewItemService(items *repository.ItemRepo) *ItemService {
	return &ItemService{items: items}
}

// Search validates the filters and queries the catalog. Without filters it
// returns the whole catalog.
func (s *ItemService) Search(ctx context.Context, f model.SearchFilters) ([]model.Item, error) {
	if f.MinPrice < 0 || f.MaxPrice < 0 {
		return nil, invalid("prices must not be negative")
	}
	if f.MinPrice > 0 && f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return nil, invalid("minimum price is above maximum price")
	}
	var start, end model.Date
	var err error
	if f.StartDate != "" {
		if start, err = model.ParseDate(f.StartDate); err != nil {
			return nil, invalid("start date must be a date (YYYY-MM-DD)")
		}
	}
	if f.EndDate != "" {
		if end, err = model.ParseDate(f.EndDate); err != nil {
			return nil, invalid("end date must be a date (YYYY-MM-DD)")
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start.Time) {
		return nil, invalid("end date is before start date")
	}
	if f.IsEmpty() {
		return s.items.List(ctx)
	}
	return s.items.Search(ctx, f)
}

func (s *ItemService) ListAll(ctx context.Context) ([]model.Item, error) {
	return s.items.List(ctx)
}

func (s *ItemService) Get(ctx context.Context, id int64) (model.Item, error) {
	if id <= 0 {
		return model.Item{}, repository.ErrNotFound
	}
	return s.items.GetByID(ctx, id)
}

// Create lists a new item owned by ownerID.
func (s *ItemService) Create(ctx context.Context, in ListingInput, ownerID int64) (model.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	if err := check(in); err != nil {
		return model.Item{}, err
	}
	if !ValidPrice(in.PricePerDay) {
		return model.Item{}, invalid("price per day must be greater than 0")
	}
	if ownerID <= 0 {
		return model.Item{}, repository.ErrUnauthorized
	}
	return s.items.Create(ctx, repository.NewItem{
		Name:        in.Name,
		Category:    in.Category,
		PricePerDay: in.PricePerDay,
		Location:    in.Location,
		Description: in.Description,
		Condition:   in.Condition,
		ImageURL:    in.ImageURL,
		OwnerID:     ownerID,
	})
}

func (s *ItemService) ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error) {
	return s.items.ListByOwner(ctx, ownerID)
}

// Remove deletes a listing permanently.
func (s *ItemService) Remove(ctx context.Context, id int64) error {
	if id <= 0 {
		return repository.ErrNotFound
	}
	return s.items.Delete(ctx, id)
}

// UpdatePrice sets a new daily price on one of ownerID's listings.
func (s *ItemService) UpdatePrice(ctx context.Context, id int64, newPrice float64, ownerID int64) (model.Item, error) {
	if !ValidPrice(newPrice) {
		return model.Item{}, invalid("price must be greater than 0")
	}
	if id <= 0 {
		return model.Item{}, repository.ErrNotFound
	}
	return s.items.UpdatePrice(ctx, id, newPrice, ownerID)
}
