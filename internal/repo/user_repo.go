package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	dom "github.com/AMYasserF/task-manager/internal/domain"
	"github.com/AMYasserF/task-manager/internal/store"
)

// UserRepo provides user persistence. GetByEmail is the only lookup that
// returns the password digest; it exists solely for credential verification.
type UserRepo interface {
	Create(ctx context.Context, name, email, passwordHash string) (*dom.User, error)
	GetByEmail(ctx context.Context, email string) (*dom.User, error)
	GetByID(ctx context.Context, id int64) (*dom.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// SQLiteUserRepo implements UserRepo on the store handle.
type SQLiteUserRepo struct {
	store *store.Store
}

func NewSQLiteUserRepo(s *store.Store) *SQLiteUserRepo {
	return &SQLiteUserRepo{store: s}
}

// Create inserts a new user. A duplicate email surfaces as the engine's
// unique-constraint error; callers classify it with utils.IsUniqueViolation.
func (r *SQLiteUserRepo) Create(ctx context.Context, name, email, passwordHash string) (*dom.User, error) {
	res, err := r.store.ExecContext(ctx,
		`INSERT INTO users (name, email, password) VALUES (?, ?, ?)`,
		name, email, passwordHash,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := r.store.Persist(ctx); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &dom.User{ID: id, Name: name, Email: email}, nil
}

// GetByEmail returns the full user row including the digest, or (nil, nil)
// when absent.
func (r *SQLiteUserRepo) GetByEmail(ctx context.Context, email string) (*dom.User, error) {
	var u dom.User
	err := r.store.QueryRowContext(ctx,
		`SELECT id, name, email, password FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// GetByID returns the user without the password digest, or (nil, nil) when
// absent. The digest column is never selected here.
func (r *SQLiteUserRepo) GetByID(ctx context.Context, id int64) (*dom.User, error) {
	var u dom.User
	err := r.store.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// Delete removes the user; the schema cascades the deletion to every task the
// user owns. Reports whether a row was actually removed.
func (r *SQLiteUserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	if err := r.store.Persist(ctx); err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return n > 0, nil
}
