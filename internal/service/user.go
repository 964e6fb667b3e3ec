package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
	"github.com/iliyamo/tour-booking-api/internal/utils"
	"github.com/iliyamo/tour-booking-api/internal/validation"
)

// UserService covers admin user management and self-service profile
// changes. Passwords are only changed through AuthService.
type UserService struct {
	users      UserStore
	reviews    *ReviewService
	bcryptCost int
}

func NewUserService(users UserStore, reviews *ReviewService, bcryptCost int) *UserService {
	return &UserService{users: users, reviews: reviews, bcryptCost: bcryptCost}
}

func (s *UserService) List(ctx context.Context, q *query.Query) ([]model.User, int64, error) {
	return s.users.List(ctx, q)
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// Create is the admin path; unlike signup it honours the requested role.
func (s *UserService) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	u := in.User()
	creds := in.Credentials()
	if err := validation.Merge(model.ValidateUser(u), model.ValidateCredentials(creds)); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(creds.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id uint64, p model.UserPatch) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(u)
	if err := model.ValidateUser(u); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateMe applies only the self-editable fields of p.
func (s *UserService) UpdateMe(ctx context.Context, id uint64, p model.UserPatch) (*model.User, error) {
	return s.Update(ctx, id, p.SelfPatch())
}

// Delete removes the user together with their reviews and refreshes the
// ratings of the tours those reviews belonged to.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	tours, err := s.reviews.ToursReviewedBy(ctx, id)
	if err != nil {
		return fmt.Errorf("tours reviewed by user %d: %w", id, err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	return s.reviews.RecalcTours(ctx, tours)
}

// DeleteMe deactivates the account; the row is kept.
func (s *UserService) DeleteMe(ctx context.Context, id uint64) error {
	return s.users.Deactivate(ctx, id)
}
