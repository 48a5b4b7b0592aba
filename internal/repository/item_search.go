package repository

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/gearshare/internal/model"
)

// searchQuery encodes the non-empty filters in a fixed order
// (keyword, category, location, minPrice, maxPrice, startDate, endDate).
// Unset filters are left out rather than sent as empty strings. Spaces are
// encoded as '+'.
func searchQuery(f model.SearchFilters) string {
	parts := make([]string, 0, 7)
	add := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, k+"="+url.QueryEscape(v))
		}
	}
	add("keyword", f.Keyword)
	add("category", f.Category)
	add("location", f.Location)
	if f.MinPrice > 0 {
		add("minPrice", formatPrice(f.MinPrice))
	}
	if f.MaxPrice > 0 {
		add("maxPrice", formatPrice(f.MaxPrice))
	}
	add("startDate", f.StartDate)
	add("endDate", f.EndDate)
	return strings.Join(parts, "&")
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
