package model

import (
	"context"
	"time"
)

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = "Customer"

// UserStore defines persistence operations for users.
type UserStore interface {
	List(ctx context.Context, params ListUsersParams) ([]User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string, excludeID int64) (User, error)
	Insert(ctx context.Context, user User) (User, error)
	InsertBatch(ctx context.Context, users []User) error
	Update(ctx context.Context, user User) error
	AnyExists(ctx context.Context) (bool, error)
}

// User represents a stored user account.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	LastLogin    *time.Time
	IsActive     bool
}

// CreateUserParams carries the fields accepted when creating a user.
type CreateUserParams struct {
	Email     string `json:"email" validate:"notblank,email,max=100"`
	Password  string `json:"password" validate:"notblank,min=6"`
	FirstName string `json:"firstName" validate:"notblank,max=50"`
	LastName  string `json:"lastName" validate:"notblank,max=50"`
	Role      string `json:"role" validate:"omitempty,max=20"`
}

// UpdateUserParams carries the full set of mutable user fields.
type UpdateUserParams struct {
	ID        int64  `json:"id" validate:"gt=0"`
	Email     string `json:"email" validate:"notblank,email,max=100"`
	FirstName string `json:"firstName" validate:"notblank,max=50"`
	LastName  string `json:"lastName" validate:"notblank,max=50"`
	Role      string `json:"role" validate:"omitempty,max=20"`
	IsActive  bool   `json:"isActive"`
}
