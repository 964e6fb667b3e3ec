package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
)

// Reviews are joined with their author. An inactive author is not
// expanded; the review itself stays visible.
const reviewFrom = `FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id AND u.active = 1`

const reviewCols = `r.id, r.review, r.rating, r.created_at, r.tour_id, r.user_id,
	u.id, u.name, u.photo`

// ReviewRepo manages persistence for reviews and computes the rating
// aggregate of a tour.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

func scanReview(s rowScanner) (*model.Review, error) {
	var (
		rv     model.Review
		uid    sql.NullInt64
		uname  sql.NullString
		uphoto sql.NullString
	)
	if err := s.Scan(&rv.ID, &rv.Review, &rv.Rating, &rv.CreatedAt, &rv.TourID, &rv.UserID,
		&uid, &uname, &uphoto); err != nil {
		return nil, err
	}
	if uid.Valid {
		rv.User = &model.UserRef{ID: uint64(uid.Int64), Name: uname.String, Photo: uphoto.String}
	}
	return &rv, nil
}

func (r *ReviewRepo) scanAll(rows *sql.Rows) ([]model.Review, error) {
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

// List returns one page of reviews matching q and the total count.
func (r *ReviewRepo) List(ctx context.Context, q *query.Query) ([]model.Review, int64, error) {
	cond, args := q.WhereSQL()

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews r WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if err := q.CheckPage(total); err != nil {
		return nil, 0, err
	}

	limit, offset := q.LimitArgs()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reviewCols+" "+reviewFrom+" WHERE "+cond+" ORDER BY "+q.OrderSQL()+" LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ForTour returns every review of a tour, newest first.
func (r *ReviewRepo) ForTour(ctx context.Context, tourID uint64) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reviewCols+" "+reviewFrom+" WHERE r.tour_id = ? ORDER BY r.created_at DESC, r.id ASC", tourID)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

// Get fetches one review.
func (r *ReviewRepo) Get(ctx context.Context, id uint64) (*model.Review, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+reviewCols+" "+reviewFrom+" WHERE r.id = ?", id)
	rv, err := scanReview(row)
	return rv, translate(err)
}

// Create inserts rv. A second review by the same user for the same tour
// fails with a *DuplicateError.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (review, rating, tour_id, user_id) VALUES (?,?,?,?)",
		rv.Review, rv.Rating, rv.TourID, rv.UserID)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rv = *created
	return nil
}

// Update writes the text and rating of rv.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reviews SET review = ?, rating = ? WHERE id = ?",
		rv.Review, rv.Rating, rv.ID)
	return translate(err)
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// ToursOfUser returns the distinct tours userID has reviewed.
func (r *ReviewRepo) ToursOfUser(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT tour_id FROM reviews WHERE user_id = ? ORDER BY tour_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// TourRatings returns the number of reviews of a tour and their mean
// rating. The mean is 0 when there are none.
func (r *ReviewRepo) TourRatings(ctx context.Context, tourID uint64) (int, float64, error) {
	var (
		n   int
		avg sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(rating) FROM reviews WHERE tour_id = ?", tourID).Scan(&n, &avg)
	if err != nil {
		return 0, 0, err
	}
	return n, avg.Float64, nil
}
