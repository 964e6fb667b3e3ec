package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
)

// ReviewService writes reviews and keeps the parent tour's rating
// aggregate in step within the same request.
type ReviewService struct {
	reviews ReviewStore
	tours   TourStore
}

func NewReviewService(reviews ReviewStore, tours TourStore) *ReviewService {
	return &ReviewService{reviews: reviews, tours: tours}
}

func (s *ReviewService) List(ctx context.Context, q *query.Query) ([]model.Review, int64, error) {
	return s.reviews.List(ctx, q)
}

func (s *ReviewService) Get(ctx context.Context, id uint64) (*model.Review, error) {
	return s.reviews.Get(ctx, id)
}

func (s *ReviewService) Create(ctx context.Context, in model.ReviewInput) (*model.Review, error) {
	r := in.NewReview()
	if err := model.ValidateReview(r); err != nil {
		return nil, err
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, err
	}
	if err := s.recalc(ctx, r.TourID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Update(ctx context.Context, id uint64, p model.ReviewPatch) (*model.Review, error) {
	r, err := s.reviews.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(r)
	if err := model.ValidateReview(r); err != nil {
		return nil, err
	}
	if err := s.reviews.Update(ctx, r); err != nil {
		return nil, err
	}
	if err := s.recalc(ctx, r.TourID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Delete(ctx context.Context, id uint64) error {
	r, err := s.reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	return s.recalc(ctx, r.TourID)
}

// ToursReviewedBy lists the tours userID has reviewed.
func (s *ReviewService) ToursReviewedBy(ctx context.Context, userID uint64) ([]uint64, error) {
	return s.reviews.ToursOfUser(ctx, userID)
}

// RecalcTours refreshes the ratings of every tour in ids, e.g. after the
// reviews of a deleted user went away with it.
func (s *ReviewService) RecalcTours(ctx context.Context, ids []uint64) error {
	for _, id := range ids {
		if err := s.recalc(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// recalc stores the review count and rounded mean on the tour. A tour
// without reviews goes back to the default average.
func (s *ReviewService) recalc(ctx context.Context, tourID uint64) error {
	n, avg, err := s.reviews.TourRatings(ctx, tourID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("tour %d ratings: %w", tourID, err))
	}
	if n == 0 {
		avg = model.DefaultRatingsAverage
	}
	avg = model.RoundRating(avg)
	if err := s.tours.UpdateRatings(ctx, tourID, n, avg); err != nil {
		return apperr.Internal(fmt.Errorf("store tour %d ratings: %w", tourID, err))
	}
	logging.Ctx(ctx).Debug().Uint64("tour_id", tourID).Int("quantity", n).Float64("average", avg).Msg("tour ratings updated")
	return nil
}
