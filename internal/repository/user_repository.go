package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/parking-lot/internal/database"
	"github.com/iliyamo/parking-lot/internal/model"
	"github.com/iliyamo/parking-lot/internal/utils"
)

// Public columns only; the password hash is never selected for reads.
const userColumns = `user_id, user_name, user_email, user_phone_no, user_address, created_at, updated_at`

type UserRepo struct{ db *database.DB }

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{db: db} }

// CreateUserParams carries the plain fields of a new user.
type CreateUserParams struct {
	Name     string
	Email    string
	Password string
	PhoneNo  string
	Address  string
}

// UserPatch lists the fields an update may replace; nil keeps the stored
// value.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	PhoneNo  *string
	Address  *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, p CreateUserParams, cost int) (uint64, error) {
	hash, err := utils.HashPassword(p.Password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	id, err := r.db.Dialect.InsertID(ctx, r.db,
		`INSERT INTO users (user_name, user_email, user_password_hash, user_phone_no, user_address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, "user_id",
		p.Name, normalizeEmail(p.Email), hash, p.PhoneNo, p.Address, now, now)
	if err != nil {
		if database.IsDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return id, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE user_id = ?`)
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ExistsTx reports whether a user with id exists.
func (r *UserRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	q := r.db.Dialect.Rebind(`SELECT 1 FROM users WHERE user_id = ?`)
	var one int
	err := tx.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update applies p to the user inside its own transaction.  The row is
// locked first so an unknown id is reported as ErrNotFound even on MySQL,
// where an UPDATE that changes nothing affects zero rows.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch, cost int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q := r.db.Dialect.Rebind(`SELECT user_name, user_email, user_password_hash, user_phone_no, user_address
	           FROM users WHERE user_id = ? FOR UPDATE`)
	var u model.User
	err = tx.QueryRowContext(ctx, q, id).Scan(&u.Name, &u.Email, &u.PasswordHash, &u.PhoneNo, &u.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = normalizeEmail(*p.Email)
	}
	if p.PhoneNo != nil {
		u.PhoneNo = *p.PhoneNo
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.Password != nil {
		if u.PasswordHash, err = utils.HashPassword(*p.Password, cost); err != nil {
			return err
		}
	}

	q = r.db.Dialect.Rebind(`UPDATE users
	           SET user_name = ?, user_email = ?, user_password_hash = ?, user_phone_no = ?, user_address = ?, updated_at = ?
	           WHERE user_id = ?`)
	if _, err := tx.ExecContext(ctx, q, u.Name, u.Email, u.PasswordHash, u.PhoneNo, u.Address, time.Now().UTC(), id); err != nil {
		if database.IsDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func scanUser(rs rowScanner) (model.User, error) {
	var u model.User
	err := rs.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNo, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
