package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/users-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

const userColumns = `id, email, first_name, last_name, password_hash, role, created_at, last_login, is_active`

var insertColumns = []string{"email", "first_name", "last_name", "password_hash", "role", "created_at", "is_active"}

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash,
		&user.Role, &user.CreatedAt, &user.LastLogin, &user.IsActive,
	)
	return user, err
}

// List returns one page of users ordered by first name.
func (r *UserRepository) List(ctx context.Context, params model.ListUsersParams) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY first_name ASC, id ASC LIMIT $1 OFFSET $2`
	if params.ActiveOnly {
		query = `SELECT ` + userColumns + ` FROM users WHERE is_active = TRUE ORDER BY first_name ASC, id ASC LIMIT $1 OFFSET $2`
	}

	var users []model.User
	err := r.db.run(ctx, "users.list", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, params.Limit(), params.Offset())
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			user, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	err := r.db.run(ctx, "users.get_by_id", func(ctx context.Context) (err error) {
		user, err = scanUser(r.db.QueryRow(ctx, query, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// FindByEmail looks a user up by email across active and inactive rows.
// A positive excludeID skips that row.
func (r *UserRepository) FindByEmail(ctx context.Context, email string, excludeID int64) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND id <> $2`

	var user model.User
	err := r.db.run(ctx, "users.find_by_email", func(ctx context.Context) (err error) {
		user, err = scanUser(r.db.QueryRow(ctx, query, email, excludeID))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) Insert(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (email, first_name, last_name, password_hash, role, created_at, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + userColumns

	var saved model.User
	err := r.db.run(ctx, "users.insert", func(ctx context.Context) (err error) {
		saved, err = scanUser(r.db.QueryRow(ctx, query,
			user.Email, user.FirstName, user.LastName, user.PasswordHash,
			user.Role, user.CreatedAt, user.IsActive,
		))
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return model.User{}, model.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

// InsertBatch copies users in a single transaction.
func (r *UserRepository) InsertBatch(ctx context.Context, users []model.User) error {
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.CreatedAt, u.IsActive})
	}

	err := r.db.run(ctx, "users.insert_batch", func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"users"}, insertColumns, pgx.CopyFromRows(rows)); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return model.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert users: %w", err)
	}

	return nil
}

// Update overwrites the mutable fields of the row with user.ID. A missing
// row is not reported; callers check existence first.
func (r *UserRepository) Update(ctx context.Context, user model.User) error {
	query := `UPDATE users SET email = $2, first_name = $3, last_name = $4, role = $5, is_active = $6
			  WHERE id = $1`

	err := r.db.run(ctx, "users.update", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.FirstName, user.LastName, user.Role, user.IsActive)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return model.ErrAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

func (r *UserRepository) AnyExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.run(ctx, "users.any_exists", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check users existence: %w", err)
	}

	return exists, nil
}
