package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/go-task-api/internal/models"
)

// defines methods for user db operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, patch *UserPatch) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserPatch is a partial profile update; nil fields are left untouched.
type UserPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

const userColumns = `id, username, email, password_hash, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts the user after checking username and email uniqueness in
// the same transaction. The unique constraints in the schema remain the
// backstop against races; either path surfaces as a FieldError, never as
// a raw storage error.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := checkUnique(ctx, tx, "username", user.Username, uuid.Nil); err != nil {
		return err
	}
	if err := checkUnique(ctx, tx, "email", user.Email, uuid.Nil); err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return uniqueViolationToFieldError(err)
	}
	return tx.Commit()
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a profile patch, re-checking uniqueness for a changed
// username or email.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, patch *UserPatch) (*models.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user := &models.User{}
	err = tx.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if patch.Username != nil && *patch.Username != user.Username {
		if err := checkUnique(ctx, tx, "username", *patch.Username, id); err != nil {
			return nil, err
		}
		user.Username = *patch.Username
	}
	if patch.Email != nil && *patch.Email != user.Email {
		if err := checkUnique(ctx, tx, "email", *patch.Email, id); err != nil {
			return nil, err
		}
		user.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	user.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `UPDATE users
	 SET username = $1, email = $2, password_hash = $3, updated_at = $4
	 WHERE id = $5`,
		user.Username, user.Email, user.PasswordHash, user.UpdatedAt, id)
	if err != nil {
		return nil, uniqueViolationToFieldError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the user and all owned tasks in one transaction.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrUserNotFound
	}
	return tx.Commit()
}

// checkUnique fails with a FieldError if another user (excluding self)
// already holds the value in the given column.
func checkUnique(ctx context.Context, tx *sql.Tx, column, value string, self uuid.UUID) error {
	// column is one of "username" / "email", never user input
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE ` + column + ` = $1 AND id <> $2)`
	var exists bool
	if err := tx.QueryRowContext(ctx, query, value, self).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return &models.FieldError{Field: column, Reason: "already in use"}
	}
	return nil
}

// uniqueViolationToFieldError keeps constraint violations that slip past
// the in-tx checks from leaking as raw driver errors. Matching on the
// message covers both pq ("duplicate key value violates unique
// constraint") and sqlite ("UNIQUE constraint failed").
func uniqueViolationToFieldError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		field := "username"
		if strings.Contains(msg, "email") {
			field = "email"
		}
		return &models.FieldError{Field: field, Reason: "already in use"}
	}
	return err
}
