package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
)

// Secret tours are filtered out of every statement that reads tours.
const visibleTours = "t.secret_tour = 0"

const tourCols = `t.id, t.name, t.duration, t.max_group_size, t.difficulty,
	t.ratings_average, t.ratings_quantity, t.price, t.price_discount,
	t.summary, t.description, t.image_cover, t.images, t.secret_tour,
	t.start_lng, t.start_lat, t.start_address, t.start_description,
	t.locations, t.created_at`

// TourRepo encapsulates all queries on tours and their child tables
// (tour_start_dates, tour_guides).
type TourRepo struct {
	db *sql.DB
}

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

func scanTour(s rowScanner) (*model.Tour, error) {
	var (
		t         model.Tour
		discount  sql.NullFloat64
		desc      sql.NullString
		images    []byte
		lng, lat  sql.NullFloat64
		addr, sd  sql.NullString
		locations []byte
	)
	if err := s.Scan(&t.ID, &t.Name, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
		&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &discount,
		&t.Summary, &desc, &t.ImageCover, &images, &t.SecretTour,
		&lng, &lat, &addr, &sd, &locations, &t.CreatedAt); err != nil {
		return nil, err
	}
	if discount.Valid {
		v := discount.Float64
		t.PriceDiscount = &v
	}
	t.Description = desc.String
	if len(images) > 0 {
		if err := json.Unmarshal(images, &t.Images); err != nil {
			return nil, fmt.Errorf("decode images of tour %d: %w", t.ID, err)
		}
	}
	if lng.Valid && lat.Valid {
		t.StartLocation = &model.Location{
			Type:        "Point",
			Coordinates: []float64{lng.Float64, lat.Float64},
			Address:     addr.String,
			Description: sd.String,
		}
	}
	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &t.Locations); err != nil {
			return nil, fmt.Errorf("decode locations of tour %d: %w", t.ID, err)
		}
	}
	return &t, nil
}

// List returns one page of visible tours matching q and the total number
// of matches before pagination.
func (r *TourRepo) List(ctx context.Context, q *query.Query) ([]model.Tour, int64, error) {
	cond, args := q.WhereSQL(visibleTours)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tours t WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if err := q.CheckPage(total); err != nil {
		return nil, 0, err
	}

	limit, offset := q.LimitArgs()
	dataSQL := "SELECT " + tourCols + " FROM tours t WHERE " + cond +
		" ORDER BY " + q.OrderSQL() + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Tour, 0, limit)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadChildren(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a visible tour with its start dates and guide ids.
func (r *TourRepo) Get(ctx context.Context, id uint64) (*model.Tour, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tourCols+" FROM tours t WHERE t.id = ? AND "+visibleTours, id)
	t, err := scanTour(row)
	if err != nil {
		return nil, translate(err)
	}
	one := []model.Tour{*t}
	if err := r.loadChildren(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// loadChildren fills StartDates and Guides for a page of tours with one
// query per child table.
func (r *TourRepo) loadChildren(ctx context.Context, tours []model.Tour) error {
	if len(tours) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(tours))
	ids := make([]any, 0, len(tours))
	for i := range tours {
		idx[tours[i].ID] = i
		ids = append(ids, tours[i].ID)
		tours[i].StartDates = []time.Time{}
		tours[i].Guides = []uint64{}
	}
	in := placeholders(len(ids))

	rows, err := r.db.QueryContext(ctx,
		"SELECT tour_id, start_date FROM tour_start_dates WHERE tour_id IN ("+in+") ORDER BY start_date", ids...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id uint64
		var d time.Time
		if err := rows.Scan(&id, &d); err != nil {
			rows.Close()
			return err
		}
		t := &tours[idx[id]]
		t.StartDates = append(t.StartDates, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		"SELECT tour_id, user_id FROM tour_guides WHERE tour_id IN ("+in+") ORDER BY position", ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, uid uint64
		if err := rows.Scan(&id, &uid); err != nil {
			return err
		}
		t := &tours[idx[id]]
		t.Guides = append(t.Guides, uid)
	}
	return rows.Err()
}

// Guides returns the active users guiding tour id, in assignment order.
func (r *TourRepo) Guides(ctx context.Context, id uint64) ([]model.UserRef, error) {
	const q = `SELECT u.id, u.name, u.photo, u.email, u.role
	           FROM tour_guides g JOIN users u ON u.id = g.user_id
	           WHERE g.tour_id = ? AND u.active = 1
	           ORDER BY g.position`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.UserRef{}
	for rows.Next() {
		var g model.UserRef
		if err := rows.Scan(&g.ID, &g.Name, &g.Photo, &g.Email, &g.Role); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// tourArgs returns the column values written by insert and update, in
// the order of the column list used by both.
func tourArgs(t *model.Tour) ([]any, error) {
	images, err := json.Marshal(t.Images)
	if err != nil {
		return nil, err
	}
	locations, err := json.Marshal(t.Locations)
	if err != nil {
		return nil, err
	}
	var lng, lat sql.NullFloat64
	var addr, sd sql.NullString
	if l := t.StartLocation; l != nil {
		lng = sql.NullFloat64{Float64: l.Lng(), Valid: true}
		lat = sql.NullFloat64{Float64: l.Lat(), Valid: true}
		addr = sql.NullString{String: l.Address, Valid: l.Address != ""}
		sd = sql.NullString{String: l.Description, Valid: l.Description != ""}
	}
	var discount sql.NullFloat64
	if t.PriceDiscount != nil {
		discount = sql.NullFloat64{Float64: *t.PriceDiscount, Valid: true}
	}
	return []any{
		t.Name, t.Duration, t.MaxGroupSize, t.Difficulty,
		t.RatingsAverage, t.RatingsQuantity, t.Price, discount,
		t.Summary, t.Description, t.ImageCover, images, t.SecretTour,
		lng, lat, addr, sd, locations,
	}, nil
}

// Create inserts t and its child rows in one transaction. On success t
// is reloaded so that store defaults (id, createdAt) are populated.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour) (err error) {
	args, err := tourArgs(t)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	const qInsert = `INSERT INTO tours (name, duration, max_group_size, difficulty,
		ratings_average, ratings_quantity, price, price_discount,
		summary, description, image_cover, images, secret_tour,
		start_lng, start_lat, start_address, start_description, locations)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, qInsert, args...)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	if err = writeChildren(ctx, tx, t); err != nil {
		return err
	}
	if err = tx.QueryRowContext(ctx, "SELECT created_at FROM tours WHERE id = ?", t.ID).Scan(&t.CreatedAt); err != nil {
		return err
	}
	return nil
}

// Update overwrites the editable columns of t and replaces its child
// rows. The rating columns are left to UpdateRatings.
func (r *TourRepo) Update(ctx context.Context, t *model.Tour) (err error) {
	args, err := tourArgs(t)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, qUpdateTour, updateArgs(args, t.ID)...); err != nil {
		return translate(err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM tour_start_dates WHERE tour_id = ?", t.ID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM tour_guides WHERE tour_id = ?", t.ID); err != nil {
		return err
	}
	return writeChildren(ctx, tx, t)
}

const qUpdateTour = `UPDATE tours SET name = ?, duration = ?, max_group_size = ?, difficulty = ?,
		price = ?, price_discount = ?,
		summary = ?, description = ?, image_cover = ?, images = ?, secret_tour = ?,
		start_lng = ?, start_lat = ?, start_address = ?, start_description = ?, locations = ?
		WHERE id = ?`

// updateArgs drops ratings_average and ratings_quantity from the
// tourArgs list and appends the id.
func updateArgs(args []any, id uint64) []any {
	out := make([]any, 0, len(args)-1)
	out = append(out, args[:4]...)
	out = append(out, args[6:]...)
	return append(out, id)
}

func writeChildren(ctx context.Context, tx *sql.Tx, t *model.Tour) error {
	for _, d := range t.StartDates {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO tour_start_dates (tour_id, start_date) VALUES (?, ?)", t.ID, d.UTC()); err != nil {
			return err
		}
	}
	for i, g := range t.Guides {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO tour_guides (tour_id, user_id, position) VALUES (?, ?, ?)", t.ID, g, i); err != nil {
			return translate(err)
		}
	}
	return nil
}

// Delete removes a visible tour. Child rows and reviews cascade.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tours WHERE id = ? AND secret_tour = 0", id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// DeleteAll removes every tour. It backs the dev-data importer.
func (r *TourRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tours")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateRatings stores the aggregate rating fields of a tour.
func (r *TourRepo) UpdateRatings(ctx context.Context, id uint64, quantity int, average float64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tours SET ratings_quantity = ?, ratings_average = ? WHERE id = ?",
		quantity, average, id)
	return err
}

// RatingStats groups well-rated tours by difficulty.
func (r *TourRepo) RatingStats(ctx context.Context) ([]model.TourStat, error) {
	const q = `SELECT UPPER(t.difficulty) AS grp, COUNT(*), COALESCE(SUM(t.ratings_quantity), 0),
	                  AVG(t.ratings_average), AVG(t.price), MIN(t.price), MAX(t.price)
	           FROM tours t
	           WHERE t.ratings_average >= 4.5 AND ` + visibleTours + `
	           GROUP BY grp
	           ORDER BY AVG(t.price) DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TourStat{}
	for rows.Next() {
		var s model.TourStat
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthlyPlan counts tour start dates per month of year.
func (r *TourRepo) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error) {
	const q = `SELECT MONTH(d.start_date) AS month, COUNT(*) AS num, JSON_ARRAYAGG(t.name)
	           FROM tour_start_dates d JOIN tours t ON t.id = d.tour_id
	           WHERE d.start_date >= ? AND d.start_date < ? AND ` + visibleTours + `
	           GROUP BY month
	           ORDER BY num DESC, month ASC
	           LIMIT 12`
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.db.QueryContext(ctx, q, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MonthlyPlanEntry{}
	for rows.Next() {
		var e model.MonthlyPlanEntry
		var names []byte
		if err := rows.Scan(&e.Month, &e.NumOfTours, &names); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(names, &e.Tours); err != nil {
			return nil, fmt.Errorf("decode tour names for month %d: %w", e.Month, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Within returns visible tours whose start location lies within radius
// meters of (lat, lng).
func (r *TourRepo) Within(ctx context.Context, lat, lng, radius float64) ([]model.Tour, error) {
	q := "SELECT " + tourCols + ` FROM tours t
	      WHERE ` + visibleTours + ` AND t.start_lng IS NOT NULL
	        AND ST_Distance_Sphere(POINT(t.start_lng, t.start_lat), POINT(?, ?)) <= ?
	      ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, q, lng, lat, radius)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, r.loadChildren(ctx, out)
}

// Distances returns every visible tour with a start location and its
// distance from (lat, lng) in meters multiplied by multiplier, nearest first.
func (r *TourRepo) Distances(ctx context.Context, lat, lng, multiplier float64) ([]model.TourDistance, error) {
	const q = `SELECT t.id, t.name,
	                  ST_Distance_Sphere(POINT(t.start_lng, t.start_lat), POINT(?, ?)) * ? AS distance
	           FROM tours t
	           WHERE ` + visibleTours + ` AND t.start_lng IS NOT NULL
	           ORDER BY distance ASC, t.id ASC`
	rows, err := r.db.QueryContext(ctx, q, lng, lat, multiplier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TourDistance{}
	for rows.Next() {
		var d model.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
