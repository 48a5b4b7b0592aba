package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
)

// ReviewInput is the review form. Rating arrives as text and is coerced to
// an integer by ParseRating.
type ReviewInput struct {
	ReviewerID int64  `validate:"gt=0"`
	Rating     int    `validate:"min=1,max=5"`
	Comment    string `validate:"max=1000"`
}

// ReviewService adds reviews to items. Several reviews by the same user on
// the same item are allowed.
type ReviewService struct {
	reviews *repository.ReviewRepo
}

func NewReviewService(reviews *repository.ReviewRepo) *ReviewService {
	return &ReviewService{reviews: reviews}
}

// ParseRating coerces a form value such as "4" or "4.0" to an integer.
func ParseRating(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, invalid("rating must be a whole number from 1 to 5")
	}
	return int(f), nil
}

// AddReview validates and posts a review on item. Owners cannot review
// their own listings.
func (s *ReviewService) AddReview(ctx context.Context, item model.Item, in ReviewInput) (model.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := check(in); err != nil {
		return model.Review{}, err
	}
	if item.OwnerUserID() == in.ReviewerID {
		return model.Review{}, repository.ErrForbidden
	}
	return s.reviews.Add(ctx, item.ID, repository.NewReview{
		ReviewerID: in.ReviewerID,
		Rating:     in.Rating,
		Comment:    in.Comment,
	})
}
