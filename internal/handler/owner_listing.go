package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/service"
)

// ListingHandler manages the signed-in user's own listings.
type ListingHandler struct {
	base
	Items *service.ItemService
}

func NewListingHandler(items *service.ItemService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{base: newBase(logger), Items: items}
}

type listingFormData struct {
	Form       service.ListingInput
	Categories []string
	Conditions []string
}

type listingsData struct {
	Items []model.Item
}

func (h *ListingHandler) form(c echo.Context, status int, in service.ListingInput, errMsg string) error {
	data := listingFormData{Form: in, Categories: model.Categories, Conditions: model.Conditions}
	return h.renderError(c, status, "item_form", "List an item", data, errMsg)
}

// NewItemForm: GET /items/new
func (h *ListingHandler) NewItemForm(c echo.Context) error {
	return h.form(c, http.StatusOK, service.ListingInput{Condition: "Good"}, "")
}

// CreateItem: POST /items
func (h *ListingHandler) CreateItem(c echo.Context) error {
	var in service.ListingInput
	if err := c.Bind(&in); err != nil {
		return h.form(c, http.StatusUnprocessableEntity, in, "Price per day must be a number.")
	}
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Items.Create(ctx, in, u.ID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrValidation):
		return h.form(c, formStatus(err), in, formMessage(err))
	default:
		return h.actionFailed(c, err, "/items/new")
	}
	h.Log.Info("item listed", "item_id", it.ID, "owner_id", u.ID)
	return redirect(c, "/my-listings", "listing_created")
}

// MyListings: GET /my-listings
func (h *ListingHandler) MyListings(c echo.Context) error {
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Items.ListByOwner(ctx, u.ID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUnauthorized):
		return toLogin(c)
	case c.Request().Context().Err() != nil:
		return nil
	default:
		h.Log.Warn("list own items", "user_id", u.ID, "err", err)
		return h.page(c, http.StatusOK, "my_listings", "My listings", listingsData{}, "", "load_failed")
	}
	return h.render(c, http.StatusOK, "my_listings", "My listings", listingsData{Items: items})
}

// DeleteItem: POST /my-listings/:id/delete. Deletion is permanent, so the
// form must carry confirm=yes.
func (h *ListingHandler) DeleteItem(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return redirect(c, "/my-listings", "not_found")
	}
	if c.FormValue("confirm") != "yes" {
		return redirect(c, "/my-listings", "confirm_delete")
	}
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Items.Get(ctx, id)
	if err != nil {
		return h.actionFailed(c, err, "/my-listings")
	}
	if !it.OwnedBy(u) {
		return redirect(c, "/my-listings", "forbidden")
	}
	if err := h.Items.Remove(ctx, id); err != nil {
		return h.actionFailed(c, err, "/my-listings")
	}
	h.Log.Info("item deleted", "item_id", id, "owner_id", u.ID)
	return redirect(c, "/my-listings", "listing_deleted")
}

// UpdatePrice: POST /my-listings/:id/price
func (h *ListingHandler) UpdatePrice(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return redirect(c, "/my-listings", "not_found")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(c.FormValue("price")), 64)
	if err != nil || !service.ValidPrice(price) {
		return redirect(c, "/my-listings", "price_invalid")
	}
	u := currentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	_, err = h.Items.UpdatePrice(ctx, id, price, u.ID)
	if errors.Is(err, repository.ErrValidation) {
		return redirect(c, "/my-listings", "price_invalid")
	}
	if err != nil {
		return h.actionFailed(c, err, "/my-listings")
	}
	h.Log.Info("price updated", "item_id", id, "owner_id", u.ID, "price", price)
	return redirect(c, "/my-listings", "price_updated")
}
