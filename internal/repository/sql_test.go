package repository

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
		db.Close()
	})
	return db, mock
}

// sqlText quotes a statement for sqlmock's regexp matcher.
func sqlText(s string) string { return regexp.QuoteMeta(s) }

func tourQuery(t *testing.T, raw string) *query.Query {
	t.Helper()
	params, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatal(err)
	}
	q, err := query.Parse(TourSchema, params)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

var tourColumns = []string{"id", "name", "duration", "max_group_size", "difficulty",
	"ratings_average", "ratings_quantity", "price", "price_discount",
	"summary", "description", "image_cover", "images", "secret_tour",
	"start_lng", "start_lat", "start_address", "start_description",
	"locations", "created_at"}

func tourRow(rows *sqlmock.Rows, id int64, name string, price float64) *sqlmock.Rows {
	return rows.AddRow(id, name, 5, 10, "easy", 4.5, 0, price, nil,
		"summary", nil, "cover.jpg", []byte(`["a.jpg"]`), false,
		-80.185942, 25.774772, "Miami, USA", nil, nil,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestTourListSQL(t *testing.T) {
	db, mock := newMock(t)
	q := tourQuery(t, "price[gte]=400&difficulty=easy&sort=-price&page=2&limit=2")

	where := "WHERE t.secret_tour = 0 AND t.difficulty = ? AND t.price >= ?"
	mock.ExpectQuery(sqlText("SELECT COUNT(*) FROM tours t " + where)).
		WithArgs("easy", 400.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	rows := sqlmock.NewRows(tourColumns)
	tourRow(rows, 4, "The Sea Explorer", 997)
	tourRow(rows, 1, "The Forest Hiker", 497)
	mock.ExpectQuery(sqlText(where + " ORDER BY t.price DESC, t.id ASC LIMIT ? OFFSET ?")).
		WithArgs("easy", 400.0, 2, 2).
		WillReturnRows(rows)
	mock.ExpectQuery(sqlText("SELECT tour_id, start_date FROM tour_start_dates WHERE tour_id IN (?,?) ORDER BY start_date")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "start_date"}).
			AddRow(4, time.Date(2021, 6, 19, 0, 0, 0, 0, time.UTC)))
	mock.ExpectQuery(sqlText("SELECT tour_id, user_id FROM tour_guides WHERE tour_id IN (?,?) ORDER BY position")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id", "user_id"}).AddRow(1, 9).AddRow(1, 8))

	got, total, err := NewTourRepo(db).List(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(got) != 2 {
		t.Fatalf("total=%d len=%d", total, len(got))
	}
	if len(got[0].StartDates) != 1 || len(got[1].StartDates) != 0 {
		t.Errorf("start dates = %v / %v", got[0].StartDates, got[1].StartDates)
	}
	if len(got[1].Guides) != 2 || got[1].Guides[0] != 9 {
		t.Errorf("guides = %v", got[1].Guides)
	}
	loc := got[0].StartLocation
	if loc == nil || loc.Lng() != -80.185942 || loc.Lat() != 25.774772 || loc.Address != "Miami, USA" {
		t.Errorf("start location = %+v", loc)
	}
	if len(got[0].Images) != 1 || got[0].PriceDiscount != nil {
		t.Errorf("decoded tour = %+v", got[0])
	}
}

func TestTourListPageBeyondEndSkipsDataQuery(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(sqlText("SELECT COUNT(*) FROM tours t WHERE t.secret_tour = 0")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	_, _, err := NewTourRepo(db).List(context.Background(), tourQuery(t, "page=9223372036854775807"))
	if err == nil || !strings.Contains(err.Error(), "This page does not exist") {
		t.Errorf("err = %v", err)
	}
}

func TestTourCreateDuplicateRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO tours (name, duration, max_group_size, difficulty,")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'The Forest Hiker' for key 'tours.uq_tours_name'"})
	mock.ExpectRollback()

	tour := &model.Tour{Name: "The Forest Hiker", Duration: 5, MaxGroupSize: 25, Difficulty: "easy", Price: 397}
	err := NewTourRepo(db).Create(context.Background(), tour)
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Value != "The Forest Hiker" || dup.Key != "tours.uq_tours_name" {
		t.Errorf("err = %v", err)
	}
}

func TestTourUpdateLeavesRatingsAlone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(sqlText(`UPDATE tours SET name = ?, duration = ?, max_group_size = ?, difficulty = ?, price = ?, price_discount = ?,`)).
		WithArgs("The Forest Hiker", 5, 25, "easy", 397.0, nil,
			"summary", "", "cover.jpg", sqlmock.AnyArg(), false,
			nil, nil, nil, nil, sqlmock.AnyArg(), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(sqlText("DELETE FROM tour_start_dates WHERE tour_id = ?")).WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(sqlText("DELETE FROM tour_guides WHERE tour_id = ?")).WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(sqlText("INSERT IGNORE INTO tour_guides (tour_id, user_id, position) VALUES (?, ?, ?)")).
		WithArgs(uint64(3), uint64(7), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tour := &model.Tour{
		ID: 3, Name: "The Forest Hiker", Duration: 5, MaxGroupSize: 25, Difficulty: "easy",
		RatingsAverage: 1, RatingsQuantity: 99,
		Price: 397, Summary: "summary", ImageCover: "cover.jpg", Guides: []uint64{7},
	}
	if err := NewTourRepo(db).Update(context.Background(), tour); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(qUpdateTour, "ratings_") {
		t.Error("tour update must not write rating columns")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(sqlText("INSERT INTO users (name, email, photo, role, password_hash, active) VALUES (?,?,?,?,?,1)")).
		WithArgs("Ann", "ann@example.com", "default.jpg", "user", "hash").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ann@example.com' for key 'users.uq_users_email'"})

	err := NewUserRepo(db).Create(context.Background(), &model.User{
		Name: "Ann", Email: "ann@example.com", Photo: "default.jpg", Role: "user", PasswordHash: "hash",
	})
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Value != "ann@example.com" {
		t.Errorf("err = %v", err)
	}
}

func TestReviewCreateMissingTour(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(sqlText("INSERT INTO reviews (review, rating, tour_id, user_id) VALUES (?,?,?,?)")).
		WithArgs("Nice", 4.0, uint64(99), uint64(1)).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	err := NewReviewRepo(db).Create(context.Background(), &model.Review{Review: "Nice", Rating: 4, TourID: 99, UserID: 1})
	if !errors.Is(err, ErrBadReference) {
		t.Errorf("err = %v", err)
	}
}

func TestMonthlyPlanSQL(t *testing.T) {
	db, mock := newMock(t)
	from := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(sqlText("SELECT MONTH(d.start_date) AS month, COUNT(*) AS num, JSON_ARRAYAGG(t.name)")).
		WithArgs(from, from.AddDate(1, 0, 0)).
		WillReturnRows(sqlmock.NewRows([]string{"month", "num", "tours"}).
			AddRow(7, 2, []byte(`["The Forest Hiker", "The Sea Explorer"]`)).
			AddRow(4, 1, []byte(`["The Forest Hiker"]`)))

	plan, err := NewTourRepo(db).MonthlyPlan(context.Background(), 2021)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 2 || plan[0].Month != 7 || plan[0].NumOfTours != 2 || plan[0].Tours[1] != "The Sea Explorer" {
		t.Errorf("plan = %+v", plan)
	}
}

func TestMonthlyPlanBadAggregate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(sqlText("JSON_ARRAYAGG(t.name)")).
		WillReturnRows(sqlmock.NewRows([]string{"month", "num", "tours"}).AddRow(7, 2, []byte(`not json`)))

	if _, err := NewTourRepo(db).MonthlyPlan(context.Background(), 2021); err == nil {
		t.Error("malformed JSON_ARRAYAGG output must fail")
	}
}

func TestTourRatingsSQL(t *testing.T) {
	db, mock := newMock(t)
	stmt := sqlText("SELECT COUNT(*), AVG(rating) FROM reviews WHERE tour_id = ?")
	mock.ExpectQuery(stmt).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(2, []byte("4.50000")))
	mock.ExpectQuery(stmt).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(0, nil))
	mock.ExpectExec(sqlText("UPDATE tours SET ratings_quantity = ?, ratings_average = ? WHERE id = ?")).
		WithArgs(2, 4.5, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	reviews := NewReviewRepo(db)
	ctx := context.Background()
	if n, avg, err := reviews.TourRatings(ctx, 7); err != nil || n != 2 || avg != 4.5 {
		t.Errorf("tour 7 = %d %v %v", n, avg, err)
	}
	if n, avg, err := reviews.TourRatings(ctx, 8); err != nil || n != 0 || avg != 0 {
		t.Errorf("tour 8 = %d %v %v", n, avg, err)
	}
	if err := NewTourRepo(db).UpdateRatings(ctx, 7, 2, 4.5); err != nil {
		t.Error(err)
	}
}

func TestToursOfUserSQL(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(sqlText("SELECT DISTINCT tour_id FROM reviews WHERE user_id = ? ORDER BY tour_id")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id"}).AddRow(2).AddRow(9))

	ids, err := NewReviewRepo(db).ToursOfUser(context.Background(), 5)
	if err != nil || len(ids) != 2 || ids[0] != 2 || ids[1] != 9 {
		t.Errorf("ids = %v, err = %v", ids, err)
	}
}

var userColumns = []string{"id", "name", "email", "photo", "role", "password_hash",
	"password_changed_at", "password_reset_token", "password_reset_expires", "active", "created_at"}

func TestFindByResetSQL(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	hash := strings.Repeat("ab", 32)
	stmt := sqlText("WHERE u.password_reset_token = ? AND u.password_reset_expires > ? AND u.active = 1 LIMIT 1")

	exp := now.Add(5 * time.Minute)
	mock.ExpectQuery(stmt).WithArgs(hash, now).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(3, "Ann", "ann@example.com", "default.jpg", "user", "h", nil, hash, exp, true, now))
	mock.ExpectQuery(stmt).WithArgs(hash, now.Add(10*time.Minute)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	resets := NewTokenRepo(db)
	u, err := resets.FindByReset(context.Background(), hash, now)
	if err != nil || u.ID != 3 || u.PasswordResetExpires == nil || !u.PasswordResetExpires.Equal(exp) {
		t.Fatalf("valid token: %+v %v", u, err)
	}
	if _, err := resets.FindByReset(context.Background(), hash, now.Add(10*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired token: %v", err)
	}
}

func TestStoreResetUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	exp := time.Date(2024, 3, 1, 12, 10, 0, 0, time.UTC)
	mock.ExpectExec(sqlText("UPDATE users SET password_reset_token = ?, password_reset_expires = ? WHERE id = ? AND active = 1")).
		WithArgs("hash", exp, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewTokenRepo(db).StoreReset(context.Background(), 42, "hash", exp); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
