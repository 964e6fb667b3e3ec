package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
	"github.com/iliyamo/tour-booking-api/internal/repository"
)

// Store holds users, tours and reviews behind one lock so cross-entity
// rules (active users, secret tours, unique reviews) can be checked.
type Store struct {
	mu      sync.Mutex
	nextID  uint64
	users   map[uint64]*model.User
	tours   map[uint64]*model.Tour
	reviews map[uint64]*model.Review
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users:   map[uint64]*model.User{},
		tours:   map[uint64]*model.Tour{},
		reviews: map[uint64]*model.Review{},
		now:     time.Now,
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// Users, Resets, Tours and Reviews return views implementing the
// respective service store interfaces.
func (s *Store) Users() *Users     { return &Users{s} }
func (s *Store) Resets() *Resets   { return &Resets{s} }
func (s *Store) Tours() *Tours     { return &Tours{s} }
func (s *Store) Reviews() *Reviews { return &Reviews{s} }

func dup(value, key string) error {
	return &repository.DuplicateError{Value: value, Key: key}
}

// ---- users ----

type Users struct{ s *Store }

func userFields(u model.User) map[string]any {
	return map[string]any{
		"id": float64(u.ID), "name": u.Name, "email": u.Email,
		"role": u.Role, "createdAt": u.CreatedAt,
	}
}

func (r *Users) Create(_ context.Context, u *model.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.users {
		if o.Email == u.Email {
			return dup(u.Email, "users.uq_users_email")
		}
	}
	u.ID = s.id()
	u.Active = true
	u.CreatedAt = s.now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (r *Users) active(id uint64) (*model.User, bool) {
	u, ok := r.s.users[id]
	if !ok || !u.Active {
		return nil, false
	}
	return u, true
}

func (r *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.active(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Active && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) List(_ context.Context, q *query.Query) ([]model.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.User
	for _, u := range r.s.users {
		if u.Active {
			all = append(all, *u)
		}
	}
	return run(all, q, userFields)
}

func (r *Users) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.active(u.ID)
	if !ok {
		return repository.ErrNotFound
	}
	for _, o := range r.s.users {
		if o.ID != u.ID && o.Email == u.Email {
			return dup(u.Email, "users.uq_users_email")
		}
	}
	cur.Name, cur.Email, cur.Photo, cur.Role = u.Name, u.Email, u.Photo, u.Role
	return nil
}

func (r *Users) SetPassword(_ context.Context, id uint64, hash string, changedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.active(id)
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return nil
}

func (r *Users) Deactivate(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.active(id)
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = false
	return nil
}

func (r *Users) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.active(id); !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	for rid, rv := range r.s.reviews {
		if rv.UserID == id {
			delete(r.s.reviews, rid)
		}
	}
	return nil
}

// ---- reset tokens ----

type Resets struct{ s *Store }

func (r *Resets) StoreReset(_ context.Context, userID uint64, hash string, exp time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := (&Users{r.s}).active(userID)
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetToken = hash
	u.PasswordResetExpires = &exp
	return nil
}

func (r *Resets) ClearReset(_ context.Context, userID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[userID]; ok {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	}
	return nil
}

func (r *Resets) FindByReset(_ context.Context, hash string, now time.Time) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Active && u.PasswordResetToken == hash && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ---- tours ----

type Tours struct{ s *Store }

func tourFields(t model.Tour) map[string]any {
	m := map[string]any{
		"id": float64(t.ID), "name": t.Name, "duration": float64(t.Duration),
		"maxGroupSize": float64(t.MaxGroupSize), "difficulty": t.Difficulty,
		"ratingsAverage": t.RatingsAverage, "ratingsQuantity": float64(t.RatingsQuantity),
		"price": t.Price, "createdAt": t.CreatedAt,
	}
	if t.PriceDiscount != nil {
		m["priceDiscount"] = *t.PriceDiscount
	}
	return m
}

func cloneTour(t *model.Tour) model.Tour {
	cp := *t
	cp.Images = append([]string(nil), t.Images...)
	cp.StartDates = append([]time.Time(nil), t.StartDates...)
	cp.Locations = append([]model.Location(nil), t.Locations...)
	cp.Guides = append([]uint64(nil), t.Guides...)
	return cp
}

func (r *Tours) visible(id uint64) (*model.Tour, bool) {
	t, ok := r.s.tours[id]
	if !ok || t.SecretTour {
		return nil, false
	}
	return t, true
}

func (r *Tours) checkName(t *model.Tour) error {
	for _, o := range r.s.tours {
		if o.ID != t.ID && o.Name == t.Name {
			return dup(t.Name, "tours.uq_tours_name")
		}
	}
	for _, g := range t.Guides {
		if _, ok := r.s.users[g]; !ok {
			return fmt.Errorf("%w: guide %d", repository.ErrBadReference, g)
		}
	}
	return nil
}

func (r *Tours) List(_ context.Context, q *query.Query) ([]model.Tour, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.Tour
	for _, t := range r.s.tours {
		if !t.SecretTour {
			all = append(all, cloneTour(t))
		}
	}
	return run(all, q, tourFields)
}

func (r *Tours) Get(_ context.Context, id uint64) (*model.Tour, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.visible(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneTour(t)
	return &cp, nil
}

func (r *Tours) Create(_ context.Context, t *model.Tour) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkName(t); err != nil {
		return err
	}
	t.ID = r.s.id()
	t.CreatedAt = r.s.now().UTC()
	cp := cloneTour(t)
	r.s.tours[t.ID] = &cp
	return nil
}

func (r *Tours) Update(_ context.Context, t *model.Tour) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tours[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.checkName(t); err != nil {
		return err
	}
	// ratings are owned by UpdateRatings
	cp := cloneTour(t)
	cp.RatingsAverage, cp.RatingsQuantity = cur.RatingsAverage, cur.RatingsQuantity
	r.s.tours[t.ID] = &cp
	return nil
}

func (r *Tours) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.visible(id); !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tours, id)
	for rid, rv := range r.s.reviews {
		if rv.TourID == id {
			delete(r.s.reviews, rid)
		}
	}
	return nil
}

func (r *Tours) Guides(_ context.Context, id uint64) ([]model.UserRef, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.UserRef{}
	t, ok := r.s.tours[id]
	if !ok {
		return out, nil
	}
	for _, g := range t.Guides {
		if u, ok := (&Users{r.s}).active(g); ok {
			out = append(out, u.Ref())
		}
	}
	return out, nil
}

func (r *Tours) UpdateRatings(_ context.Context, id uint64, quantity int, average float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tours[id]; ok {
		t.RatingsQuantity = quantity
		t.RatingsAverage = average
	}
	return nil
}

func (r *Tours) RatingStats(_ context.Context) ([]model.TourStat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type acc struct {
		model.TourStat
		sumRating, sumPrice float64
	}
	groups := map[string]*acc{}
	for _, t := range r.s.tours {
		if t.SecretTour || t.RatingsAverage < 4.5 {
			continue
		}
		key := upper(t.Difficulty)
		g, ok := groups[key]
		if !ok {
			g = &acc{TourStat: model.TourStat{Difficulty: key, MinPrice: t.Price, MaxPrice: t.Price}}
			groups[key] = g
		}
		g.NumTours++
		g.NumRatings += t.RatingsQuantity
		g.sumRating += t.RatingsAverage
		g.sumPrice += t.Price
		g.MinPrice = min(g.MinPrice, t.Price)
		g.MaxPrice = max(g.MaxPrice, t.Price)
	}
	out := []model.TourStat{}
	for _, g := range groups {
		g.AvgRating = g.sumRating / float64(g.NumTours)
		g.AvgPrice = g.sumPrice / float64(g.NumTours)
		out = append(out, g.TourStat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AvgPrice > out[j].AvgPrice })
	return out, nil
}

func (r *Tours) MonthlyPlan(_ context.Context, year int) ([]model.MonthlyPlanEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byMonth := map[int]*model.MonthlyPlanEntry{}
	for _, t := range r.s.tours {
		if t.SecretTour {
			continue
		}
		for _, d := range t.StartDates {
			d = d.UTC()
			if d.Year() != year {
				continue
			}
			m := int(d.Month())
			e, ok := byMonth[m]
			if !ok {
				e = &model.MonthlyPlanEntry{Month: m}
				byMonth[m] = e
			}
			e.NumOfTours++
			e.Tours = append(e.Tours, t.Name)
		}
	}
	out := []model.MonthlyPlanEntry{}
	for _, e := range byMonth {
		sort.Strings(e.Tours)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NumOfTours != out[j].NumOfTours {
			return out[i].NumOfTours > out[j].NumOfTours
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (r *Tours) Within(_ context.Context, lat, lng, radius float64) ([]model.Tour, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Tour{}
	for _, t := range r.sortedVisible() {
		if t.StartLocation != nil && haversine(lat, lng, t.StartLocation.Lat(), t.StartLocation.Lng()) <= radius {
			out = append(out, cloneTour(t))
		}
	}
	return out, nil
}

func (r *Tours) Distances(_ context.Context, lat, lng, multiplier float64) ([]model.TourDistance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.TourDistance{}
	for _, t := range r.sortedVisible() {
		if t.StartLocation == nil {
			continue
		}
		d := haversine(lat, lng, t.StartLocation.Lat(), t.StartLocation.Lng()) * multiplier
		out = append(out, model.TourDistance{ID: t.ID, Name: t.Name, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func (r *Tours) sortedVisible() []*model.Tour {
	var ts []*model.Tour
	for _, t := range r.s.tours {
		if !t.SecretTour {
			ts = append(ts, t)
		}
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
	return ts
}

// ---- reviews ----

type Reviews struct{ s *Store }

func reviewFields(rv model.Review) map[string]any {
	return map[string]any{
		"id": float64(rv.ID), "rating": rv.Rating, "tour": float64(rv.TourID),
		"user": float64(rv.UserID), "createdAt": rv.CreatedAt,
	}
}

func (r *Reviews) expand(rv *model.Review) model.Review {
	cp := *rv
	cp.User = nil
	if u, ok := (&Users{r.s}).active(rv.UserID); ok {
		cp.User = &model.UserRef{ID: u.ID, Name: u.Name, Photo: u.Photo}
	}
	return cp
}

func (r *Reviews) List(_ context.Context, q *query.Query) ([]model.Review, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.Review
	for _, rv := range r.s.reviews {
		all = append(all, r.expand(rv))
	}
	return run(all, q, reviewFields)
}

func (r *Reviews) ForTour(_ context.Context, tourID uint64) ([]model.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Review{}
	for _, rv := range r.s.reviews {
		if rv.TourID == tourID {
			out = append(out, r.expand(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Reviews) Get(_ context.Context, id uint64) (*model.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := r.expand(rv)
	return &cp, nil
}

func (r *Reviews) Create(_ context.Context, rv *model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tours[rv.TourID]; !ok {
		return fmt.Errorf("%w: tour %d", repository.ErrBadReference, rv.TourID)
	}
	if _, ok := r.s.users[rv.UserID]; !ok {
		return fmt.Errorf("%w: user %d", repository.ErrBadReference, rv.UserID)
	}
	for _, o := range r.s.reviews {
		if o.TourID == rv.TourID && o.UserID == rv.UserID {
			return dup(fmt.Sprintf("%d-%d", rv.TourID, rv.UserID), "reviews.uq_reviews_tour_user")
		}
	}
	rv.ID = r.s.id()
	rv.CreatedAt = r.s.now().UTC()
	cp := *rv
	r.s.reviews[rv.ID] = &cp
	*rv = r.expand(&cp)
	return nil
}

func (r *Reviews) Update(_ context.Context, rv *model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.reviews[rv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Review, cur.Rating = rv.Review, rv.Rating
	return nil
}

func (r *Reviews) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reviews, id)
	return nil
}

func (r *Reviews) ToursOfUser(_ context.Context, userID uint64) ([]uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[uint64]bool{}
	out := []uint64{}
	for _, rv := range r.s.reviews {
		if rv.UserID == userID && !seen[rv.TourID] {
			seen[rv.TourID] = true
			out = append(out, rv.TourID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *Reviews) TourRatings(_ context.Context, tourID uint64) (int, float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, sum := 0, 0.0
	for _, rv := range r.s.reviews {
		if rv.TourID == tourID {
			n++
			sum += rv.Rating
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return n, sum / float64(n), nil
}
