package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
)

// Inactive users are filtered out of every statement that reads users.
const activeUsers = "u.active = 1"

const userCols = `u.id, u.name, u.email, u.photo, u.role, u.password_hash,
	u.password_changed_at, u.password_reset_token, u.password_reset_expires,
	u.active, u.created_at`

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u        model.User
		changed  sql.NullTime
		resetTok sql.NullString
		resetExp sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.PasswordHash,
		&changed, &resetTok, &resetExp, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	if changed.Valid {
		t := changed.Time
		u.PasswordChangedAt = &t
	}
	u.PasswordResetToken = resetTok.String
	if resetExp.Valid {
		t := resetExp.Time
		u.PasswordResetExpires = &t
	}
	return &u, nil
}

// Create inserts u (PasswordHash must already be set) and populates its
// ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, photo, role, password_hash, active) VALUES (?,?,?,?,?,1)",
		u.Name, u.Email, u.Photo, u.Role, u.PasswordHash)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.Active = true
	return r.DB.QueryRowContext(ctx, "SELECT created_at FROM users WHERE id = ?", u.ID).Scan(&u.CreatedAt)
}

// GetByEmail fetches an active user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users u WHERE u.email = ? AND "+activeUsers+" LIMIT 1",
		model.NormalizeEmail(email))
	u, err := scanUser(row)
	return u, translate(err)
}

// GetByID fetches an active user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users u WHERE u.id = ? AND "+activeUsers+" LIMIT 1", id)
	u, err := scanUser(row)
	return u, translate(err)
}

// List returns one page of active users matching q and the total number
// of matches.
func (r *UserRepo) List(ctx context.Context, q *query.Query) ([]model.User, int64, error) {
	cond, args := q.WhereSQL(activeUsers)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users u WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if err := q.CheckPage(total); err != nil {
		return nil, 0, err
	}

	limit, offset := q.LimitArgs()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users u WHERE "+cond+" ORDER BY "+q.OrderSQL()+" LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update writes the profile columns of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, photo = ?, role = ? WHERE id = ? AND active = 1",
		u.Name, u.Email, u.Photo, u.Role, u.ID)
	if err != nil {
		return translate(err)
	}
	// MySQL reports 0 affected rows when nothing changed, so existence is
	// checked separately.
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, u.ID)
		return err
	}
	return nil
}

// SetPassword stores a new hash, records the change time and clears any
// pending reset token.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, hash string, changedAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, password_changed_at = ?,
		        password_reset_token = NULL, password_reset_expires = NULL
		 WHERE id = ? AND active = 1`,
		hash, changedAt.UTC(), id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// Deactivate hides a user from every read path.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET active = 0 WHERE id = ? AND active = 1", id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// Delete removes an active user.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ? AND active = 1", id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}
