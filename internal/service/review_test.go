package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/repository/memory"
)

type reviewFixture struct {
	store   *memory.Store
	reviews *ReviewService
	tours   *TourService
	tourID  uint64
	userIDs []uint64
}

func newReviewFixture(t *testing.T, users int) *reviewFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	f := &reviewFixture{
		store:   store,
		reviews: NewReviewService(store.Reviews(), store.Tours()),
		tours:   NewTourService(store.Tours(), store.Reviews()),
	}
	tour, err := f.tours.Create(ctx, tourInput("The Forest Hiker", 397))
	if err != nil {
		t.Fatal(err)
	}
	f.tourID = tour.ID
	for i := 0; i < users; i++ {
		u := &model.User{Name: "U", Email: string(rune('a'+i)) + "@x.com", Role: model.RoleUser, PasswordHash: "x"}
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatal(err)
		}
		f.userIDs = append(f.userIDs, u.ID)
	}
	return f
}

func (f *reviewFixture) ratings(t *testing.T) (int, float64) {
	t.Helper()
	tour, err := f.store.Tours().Get(context.Background(), f.tourID)
	if err != nil {
		t.Fatal(err)
	}
	return tour.RatingsQuantity, tour.RatingsAverage
}

func TestReviewRatingsFollowWrites(t *testing.T) {
	f := newReviewFixture(t, 3)
	ctx := context.Background()

	var ids []uint64
	for i, rating := range []float64{5, 4, 4} {
		r, err := f.reviews.Create(ctx, model.ReviewInput{Review: "Nice", Rating: rating, Tour: f.tourID, User: f.userIDs[i]})
		if err != nil {
			t.Fatal(err)
		}
		if r.User == nil || r.User.ID != f.userIDs[i] {
			t.Errorf("author not expanded: %+v", r.User)
		}
		ids = append(ids, r.ID)
	}
	if n, avg := f.ratings(t); n != 3 || avg != 4.3 {
		t.Errorf("after create: %d %v, want 3 4.3", n, avg)
	}

	one := 1.0
	if _, err := f.reviews.Update(ctx, ids[0], model.ReviewPatch{Rating: &one}); err != nil {
		t.Fatal(err)
	}
	if n, avg := f.ratings(t); n != 3 || avg != 3 {
		t.Errorf("after update: %d %v, want 3 3", n, avg)
	}

	for _, id := range ids {
		if err := f.reviews.Delete(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	if n, avg := f.ratings(t); n != 0 || avg != model.DefaultRatingsAverage {
		t.Errorf("after delete: %d %v, want 0 4.5", n, avg)
	}
}

// A second review by the same user for the same tour is rejected and the
// aggregate still counts exactly one review.
func TestReviewDuplicate(t *testing.T) {
	f := newReviewFixture(t, 1)
	ctx := context.Background()
	in := model.ReviewInput{Review: "Great", Rating: 5, Tour: f.tourID, User: f.userIDs[0]}
	if _, err := f.reviews.Create(ctx, in); err != nil {
		t.Fatal(err)
	}
	in.Rating = 1
	if _, err := f.reviews.Create(ctx, in); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if n, avg := f.ratings(t); n != 1 || avg != 5 {
		t.Errorf("ratings = %d %v, want 1 5", n, avg)
	}
}

func TestReviewValidation(t *testing.T) {
	f := newReviewFixture(t, 1)
	_, err := f.reviews.Create(context.Background(), model.ReviewInput{Review: "", Rating: 9, Tour: f.tourID, User: f.userIDs[0]})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n, _ := f.ratings(t); n != 0 {
		t.Error("rejected review must not count")
	}
}

func TestReviewDeleteMissing(t *testing.T) {
	f := newReviewFixture(t, 0)
	for i := 0; i < 2; i++ {
		if err := f.reviews.Delete(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}
}

func TestTourUpdateKeepsRatings(t *testing.T) {
	f := newReviewFixture(t, 1)
	ctx := context.Background()
	if _, err := f.reviews.Create(ctx, model.ReviewInput{Review: "Meh", Rating: 2, Tour: f.tourID, User: f.userIDs[0]}); err != nil {
		t.Fatal(err)
	}
	stale, err := f.store.Tours().Get(ctx, f.tourID)
	if err != nil {
		t.Fatal(err)
	}
	stale.RatingsQuantity, stale.RatingsAverage = 0, model.DefaultRatingsAverage
	stale.Summary = "Rewritten summary"
	if err := f.store.Tours().Update(ctx, stale); err != nil {
		t.Fatal(err)
	}
	if n, avg := f.ratings(t); n != 1 || avg != 2 {
		t.Errorf("ratings after tour update = %d %v", n, avg)
	}

	price := 450.0
	if _, err := f.tours.Update(ctx, f.tourID, model.TourPatch{Price: &price}); err != nil {
		t.Fatal(err)
	}
	if n, avg := f.ratings(t); n != 1 || avg != 2 {
		t.Errorf("ratings after patch = %d %v", n, avg)
	}
}
