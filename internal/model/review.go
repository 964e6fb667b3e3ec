package model

import (
	"strings"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/validation"
)

// Review mirrors the `reviews` table. User is the expanded author and is
// populated on every read.
type Review struct {
	ID        uint64    `json:"id"`
	Review    string    `json:"review" validate:"required"`
	Rating    float64   `json:"rating" validate:"required,gte=1,lte=5"`
	CreatedAt time.Time `json:"createdAt"`
	TourID    uint64    `json:"tour"`
	UserID    uint64    `json:"-"`
	User      *UserRef  `json:"user,omitempty"`
}

// ValidateReview checks r before insert or update.
func ValidateReview(r *Review) error {
	r.Review = strings.TrimSpace(r.Review)
	ve := validation.Collect(r)
	if r.TourID == 0 {
		ve.Add("Review must belong to a tour")
	}
	if r.UserID == 0 {
		ve.Add("Review must belong to a user")
	}
	return ve.OrNil()
}

// ReviewInput is the create body. Tour may come from the route instead;
// User always comes from the session.
type ReviewInput struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
	Tour   uint64  `json:"tour"`
	User   uint64  `json:"-"`
}

// NewReview converts the input to a new Review.
func (in ReviewInput) NewReview() *Review {
	return &Review{Review: in.Review, Rating: in.Rating, TourID: in.Tour, UserID: in.User}
}

// ReviewPatch is the update body; a review cannot move to another tour.
type ReviewPatch struct {
	Review *string  `json:"review"`
	Rating *float64 `json:"rating"`
}

// Apply copies every non-nil field of p onto r.
func (p ReviewPatch) Apply(r *Review) {
	if p.Review != nil {
		r.Review = *p.Review
	}
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
}
