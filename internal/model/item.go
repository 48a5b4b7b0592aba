package model

import "strings"

// Categories lists the gear categories offered on the home page and in the
// listing form. The backend accepts any string; these are the ones the UI
// suggests.
var Categories = []string{"Surf", "Bike", "Camping", "Ski", "Climbing", "Water Sports", "Other"}

// Conditions lists the selectable item conditions.
var Conditions = []string{"New", "Like New", "Good", "Fair"}

// OwnerRef is the nested owner object some backend revisions embed in an
// item instead of (or next to) the flat ownerId field.
type OwnerRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Item is a gear listing.
//
// Fields:
//
//	ID          – items.id
//	Name        – short title shown in cards
//	Category    – one of Categories (not enforced)
//	Description – free text
//	PricePerDay – daily price as a decimal
//	Location    – free-text location used by search
//	Condition   – one of Conditions (not enforced)
//	ImageURL    – optional picture
//	OwnerID     – user id of the owner
//	Owner       – nested owner, when the backend sends it
//	Reviews     – reviews in the order the backend returns them
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	PricePerDay float64   `json:"pricePerDay"`
	Location    string    `json:"location"`
	Condition   string    `json:"condition"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	OwnerID     int64     `json:"ownerId,omitempty"`
	Owner       *OwnerRef `json:"owner,omitempty"`
	Reviews     []Review  `json:"reviews,omitempty"`
}

// OwnerUserID returns the owner id, preferring the flat field.
func (it Item) OwnerUserID() int64 {
	if it.OwnerID != 0 {
		return it.OwnerID
	}
	if it.Owner != nil {
		return it.Owner.ID
	}
	return 0
}

// OwnedBy reports whether u listed the item. This is a UI affordance only;
// the backend re-validates every mutation.
func (it Item) OwnedBy(u *User) bool {
	return u != nil && u.ID != 0 && it.OwnerUserID() == u.ID
}

// AverageRating returns the mean rating of the item's reviews, or 0.
func (it Item) AverageRating() float64 {
	if len(it.Reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range it.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(it.Reviews))
}

// Matches reports whether the keyword appears in the item's name or
// description, case-insensitively. An empty keyword matches everything.
func (it Item) Matches(keyword string) bool {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return true
	}
	return strings.Contains(strings.ToLower(it.Name), k) ||
		strings.Contains(strings.ToLower(it.Description), k)
}

// Review is a rating left on an item by a user who does not own it.
type Review struct {
	ID           int64  `json:"id,omitempty"`
	ItemID       int64  `json:"itemId,omitempty"`
	ReviewerID   int64  `json:"reviewerId"`
	ReviewerName string `json:"reviewerName,omitempty"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
}

// Stars renders the rating as filled and empty stars.
func (r Review) Stars() string {
	n := r.Rating
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// SearchFilters are the browse page filters. Zero values mean "not set" and
// are left out of the query string.
type SearchFilters struct {
	Keyword   string
	Category  string
	Location  string
	MinPrice  float64
	MaxPrice  float64
	StartDate string
	EndDate   string
}

// IsEmpty reports whether no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return f == SearchFilters{}
}
