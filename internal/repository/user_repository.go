package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

// UserRepo reads the users table, the identity source for bookings.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Ensure inserts the user with a bcrypt hash unless the username exists.
// It reports whether a row was created.
func (r *UserRepo) Ensure(ctx context.Context, username, password, role string, cost int) (bool, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO users (username, password, role) VALUES (?,?,?)",
		username, hash, role)
	if err != nil {
		return false, storageErr("ensure user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("ensure user: rows affected", err)
	}
	return n == 1, nil
}

// GetByUsername fetches a user or ErrUserNotFound.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT username,password,role FROM users WHERE username=? LIMIT 1",
		strings.TrimSpace(username)).Scan(&u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, storageErr("get user", err)
	}
	return u, nil
}
