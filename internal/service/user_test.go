package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/repository/memory"
)

func TestUserAdminCreateHonoursRole(t *testing.T) {
	store := memory.New()
	svc := NewUserService(store.Users(), NewReviewService(store.Reviews(), store.Tours()), 4)
	u, err := svc.Create(context.Background(), model.UserInput{
		Name: "Guide", Email: "g@x.com", Role: model.RoleLeadGuide, Password: "secret123", PasswordConfirm: "secret123",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != model.RoleLeadGuide {
		t.Errorf("role = %q", u.Role)
	}
}

func TestUpdateMeIgnoresRole(t *testing.T) {
	store := memory.New()
	svc := NewUserService(store.Users(), NewReviewService(store.Reviews(), store.Tours()), 4)
	ctx := context.Background()
	u := &model.User{Name: "A", Email: "a@x.com", Role: model.RoleUser, PasswordHash: "x"}
	if err := store.Users().Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	name, role := "Ann", model.RoleAdmin
	got, err := svc.UpdateMe(ctx, u.ID, model.UserPatch{Name: &name, Role: &role})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Ann" || got.Role != model.RoleUser {
		t.Errorf("UpdateMe = %+v", got)
	}
}

func TestDeleteMeDeactivates(t *testing.T) {
	store := memory.New()
	svc := NewUserService(store.Users(), NewReviewService(store.Reviews(), store.Tours()), 4)
	ctx := context.Background()
	u := &model.User{Name: "A", Email: "a@x.com", Role: model.RoleUser, PasswordHash: "x"}
	_ = store.Users().Create(ctx, u)

	if err := svc.DeleteMe(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, u.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("deactivated user still visible: %v", err)
	}
	if _, err := store.Users().GetByEmail(ctx, "a@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Error("deactivated user must not log in")
	}
}

func TestDeleteUserRefreshesTourRatings(t *testing.T) {
	f := newReviewFixture(t, 2)
	ctx := context.Background()
	svc := NewUserService(f.store.Users(), f.reviews, 4)
	for i, rating := range []float64{2, 5} {
		if _, err := f.reviews.Create(ctx, model.ReviewInput{Review: "ok", Rating: rating, Tour: f.tourID, User: f.userIDs[i]}); err != nil {
			t.Fatal(err)
		}
	}
	if n, avg := f.ratings(t); n != 2 || avg != 3.5 {
		t.Fatalf("before delete: %d %v", n, avg)
	}

	if err := svc.Delete(ctx, f.userIDs[0]); err != nil {
		t.Fatal(err)
	}
	if n, avg := f.ratings(t); n != 1 || avg != 5 {
		t.Errorf("after first delete: %d %v", n, avg)
	}
	if err := svc.Delete(ctx, f.userIDs[1]); err != nil {
		t.Fatal(err)
	}
	if n, avg := f.ratings(t); n != 0 || avg != model.DefaultRatingsAverage {
		t.Errorf("after last delete: %d %v", n, avg)
	}
}

func TestDeleteUnknownUser(t *testing.T) {
	f := newReviewFixture(t, 0)
	svc := NewUserService(f.store.Users(), f.reviews, 4)
	if err := svc.Delete(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
