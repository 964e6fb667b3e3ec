package service

import (
	"context"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
)

// Unit conversions used by the geo lookups.
const (
	metersPerMile      = 1609.344
	metersPerKilometer = 1000.0
)

type TourService struct {
	tours   TourStore
	reviews ReviewStore
}

func NewTourService(tours TourStore, reviews ReviewStore) *TourService {
	return &TourService{tours: tours, reviews: reviews}
}

func (s *TourService) List(ctx context.Context, q *query.Query) ([]model.Tour, int64, error) {
	tours, total, err := s.tours.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	for i := range tours {
		tours[i].Derive()
	}
	return tours, total, nil
}

// Get returns a tour with its guides expanded and its reviews attached.
func (s *TourService) Get(ctx context.Context, id uint64) (*model.TourDetail, error) {
	t, err := s.tours.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Derive()
	guides, err := s.tours.Guides(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ForTour(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.TourDetail{Tour: *t, Guides: guides, Reviews: reviews}, nil
}

func (s *TourService) Create(ctx context.Context, in model.TourInput) (*model.Tour, error) {
	t := in.Tour()
	if err := model.ValidateTour(t); err != nil {
		return nil, err
	}
	if err := s.tours.Create(ctx, t); err != nil {
		return nil, err
	}
	t.Derive()
	return t, nil
}

// Update merges p into the stored tour and validates the result as a
// whole, so the discount rule sees the effective price.
func (s *TourService) Update(ctx context.Context, id uint64, p model.TourPatch) (*model.Tour, error) {
	t, err := s.tours.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(t)
	if err := model.ValidateTour(t); err != nil {
		return nil, err
	}
	if err := s.tours.Update(ctx, t); err != nil {
		return nil, err
	}
	t.Derive()
	return t, nil
}

func (s *TourService) Delete(ctx context.Context, id uint64) error {
	return s.tours.Delete(ctx, id)
}

func (s *TourService) Stats(ctx context.Context) ([]model.TourStat, error) {
	return s.tours.RatingStats(ctx)
}

// MonthlyPlan requires a four digit year.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error) {
	if year < 1000 || year > 9999 {
		return nil, apperr.Newf(400, "Invalid year: %d", year)
	}
	return s.tours.MonthlyPlan(ctx, year)
}

// Within returns tours starting within distance (in unit) of lat,lng.
func (s *TourService) Within(ctx context.Context, distance, lat, lng float64, unit string) ([]model.Tour, error) {
	if distance <= 0 {
		return nil, apperr.BadRequest("Distance must be a positive number")
	}
	perUnit, err := metersPer(unit)
	if err != nil {
		return nil, err
	}
	tours, err := s.tours.Within(ctx, lat, lng, distance*perUnit)
	if err != nil {
		return nil, err
	}
	for i := range tours {
		tours[i].Derive()
	}
	return tours, nil
}

// Distances returns every tour's distance from lat,lng in unit.
func (s *TourService) Distances(ctx context.Context, lat, lng float64, unit string) ([]model.TourDistance, error) {
	perUnit, err := metersPer(unit)
	if err != nil {
		return nil, err
	}
	return s.tours.Distances(ctx, lat, lng, 1/perUnit)
}

func metersPer(unit string) (float64, error) {
	switch unit {
	case model.UnitMiles:
		return metersPerMile, nil
	case model.UnitKilometers:
		return metersPerKilometer, nil
	default:
		return 0, apperr.Newf(400, "Invalid unit: %s. Please use mi or km.", unit)
	}
}
