package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/middleware"
	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/service"
)

// featuredCount is how many listings the home page shows.
const featuredCount = 6

// BrowseHandler serves the public catalog pages. They work without a
// session; a signed-in visitor only changes what the item page offers.
type BrowseHandler struct {
	base
	Items *service.ItemService
}

func NewBrowseHandler(items *service.ItemService, logger *slog.Logger) *BrowseHandler {
	return &BrowseHandler{base: newBase(logger), Items: items}
}

type homeData struct {
	Categories []string
	Featured   []model.Item
}

type browseData struct {
	Filters    model.SearchFilters
	Items      []model.Item
	Categories []string
}

type itemData struct {
	Item    model.Item
	IsOwner bool
	Today   string
}

// Home: GET /
func (h *BrowseHandler) Home(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	data := homeData{Categories: model.Categories}
	items, err := h.Items.ListAll(ctx)
	if errors.Is(err, repository.ErrUnauthorized) {
		return toLogin(c)
	}
	if err != nil {
		if c.Request().Context().Err() != nil {
			return nil
		}
		h.Log.Warn("load featured items", "err", err)
		middleware.NoStore(c)
	}
	if len(items) > featuredCount {
		items = items[:featuredCount]
	}
	data.Featured = items
	return h.render(c, http.StatusOK, "home", "Rent gear from people nearby", data)
}

// filtersFrom reads the browse filters from the query string. A price that
// is not a number is reported rather than ignored.
func filtersFrom(c echo.Context) (model.SearchFilters, string) {
	f := model.SearchFilters{
		Keyword:   strings.TrimSpace(c.QueryParam("keyword")),
		Category:  strings.TrimSpace(c.QueryParam("category")),
		Location:  strings.TrimSpace(c.QueryParam("location")),
		StartDate: strings.TrimSpace(c.QueryParam("startDate")),
		EndDate:   strings.TrimSpace(c.QueryParam("endDate")),
	}
	var bad string
	if s := strings.TrimSpace(c.QueryParam("minPrice")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bad = "Minimum price must be a number."
		}
		f.MinPrice = v
	}
	if s := strings.TrimSpace(c.QueryParam("maxPrice")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bad = "Maximum price must be a number."
		}
		f.MaxPrice = v
	}
	return f, bad
}

// Browse: GET /browse. A failed search shows an empty list with a notice.
func (h *BrowseHandler) Browse(c echo.Context) error {
	f, bad := filtersFrom(c)
	data := browseData{Filters: f, Categories: model.Categories}
	if bad != "" {
		return h.renderError(c, http.StatusBadRequest, "browse", "Browse gear", data, bad)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Items.Search(ctx, f)
	switch {
	case err == nil:
		data.Items = items
	case errors.Is(err, repository.ErrUnauthorized):
		return toLogin(c)
	case c.Request().Context().Err() != nil:
		return nil
	case errors.Is(err, repository.ErrValidation):
		return h.renderError(c, http.StatusBadRequest, "browse", "Browse gear", data, formMessage(err))
	default:
		h.Log.Warn("search items", "err", err)
		middleware.NoStore(c)
		return h.page(c, http.StatusOK, "browse", "Browse gear", data, "", "search_failed")
	}
	return h.render(c, http.StatusOK, "browse", "Browse gear", data)
}

// ItemDetails: GET /items/:id
func (h *BrowseHandler) ItemDetails(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return h.notFound(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Items.Get(ctx, id)
	if err != nil {
		return h.loadFailed(c, err, "item")
	}
	return h.render(c, http.StatusOK, "item", it.Name, h.detail(c, it))
}

func (h *BrowseHandler) detail(c echo.Context, it model.Item) itemData {
	return itemData{
		Item:    it,
		IsOwner: it.OwnedBy(currentUser(c)),
		Today:   time.Now().Format(model.DateLayout),
	}
}
