// Package service holds the business operations behind the HTTP handlers:
// authentication, self-service profile changes, tour reports and review
// writes with their rating side effect. Persistence is reached through the
// small interfaces below, implemented by package repository.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, q *query.Query) ([]model.User, int64, error)
	Update(ctx context.Context, u *model.User) error
	SetPassword(ctx context.Context, id uint64, hash string, changedAt time.Time) error
	Deactivate(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

type ResetStore interface {
	StoreReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ClearReset(ctx context.Context, userID uint64) error
	FindByReset(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
}

type TourStore interface {
	List(ctx context.Context, q *query.Query) ([]model.Tour, int64, error)
	Get(ctx context.Context, id uint64) (*model.Tour, error)
	Create(ctx context.Context, t *model.Tour) error
	Update(ctx context.Context, t *model.Tour) error
	Delete(ctx context.Context, id uint64) error
	Guides(ctx context.Context, id uint64) ([]model.UserRef, error)
	UpdateRatings(ctx context.Context, id uint64, quantity int, average float64) error
	RatingStats(ctx context.Context) ([]model.TourStat, error)
	MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error)
	Within(ctx context.Context, lat, lng, radius float64) ([]model.Tour, error)
	Distances(ctx context.Context, lat, lng, multiplier float64) ([]model.TourDistance, error)
}

type ReviewStore interface {
	List(ctx context.Context, q *query.Query) ([]model.Review, int64, error)
	ForTour(ctx context.Context, tourID uint64) ([]model.Review, error)
	Get(ctx context.Context, id uint64) (*model.Review, error)
	Create(ctx context.Context, r *model.Review) error
	Update(ctx context.Context, r *model.Review) error
	Delete(ctx context.Context, id uint64) error
	TourRatings(ctx context.Context, tourID uint64) (int, float64, error)
	ToursOfUser(ctx context.Context, userID uint64) ([]uint64, error)
}
