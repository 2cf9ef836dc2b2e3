package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtroode/users-server/internal/apperr"
	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/model"
	"github.com/dtroode/users-server/internal/validation"
)

// User implements the user-management operations. Business failures are
// returned as *apperr.Error; anything else is an unexpected failure.
type User struct {
	store     model.UserStore
	hasher    model.PasswordHasher
	validator *validation.Validator
	logger    *logger.Logger
	now       func() time.Time
}

func NewUser(
	store model.UserStore,
	hasher model.PasswordHasher,
	validator *validation.Validator,
	logger *logger.Logger,
) *User {
	return &User{
		store:     store,
		hasher:    hasher,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *User) ListUsers(ctx context.Context, params model.ListUsersParams) ([]model.User, error) {
	if violations := s.validator.ListUsers(params); len(violations) > 0 {
		return nil, s.invalid(ctx, "ListUsers", violations)
	}

	users, err := s.store.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	s.logger.InfoContext(ctx, "User service: users listed",
		"page_number", params.PageNumber, "page_size", params.PageSize, "count", len(users))

	return users, nil
}

func (s *User) GetUser(ctx context.Context, id int64) (model.User, error) {
	if violations := s.validator.UserID(id); len(violations) > 0 {
		return model.User{}, s.invalid(ctx, "GetUser", violations)
	}

	return s.getExisting(ctx, id)
}

func (s *User) CreateUser(ctx context.Context, params model.CreateUserParams) (model.User, error) {
	if violations := s.validator.CreateUser(params); len(violations) > 0 {
		return model.User{}, s.invalid(ctx, "CreateUser", violations)
	}

	if err := s.ensureEmailFree(ctx, params.Email, 0); err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if errors.Is(err, model.ErrPasswordTooLong) {
		return model.User{}, s.invalid(ctx, "CreateUser", []apperr.Violation{
			{Field: "password", Message: "password is too long"},
		})
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	role := strings.TrimSpace(params.Role)
	if role == "" {
		role = model.DefaultRole
	}

	user, err := s.store.Insert(ctx, model.User{
		Email:        params.Email,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
		IsActive:     true,
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		s.logger.WarnContext(ctx, "User service: email taken on insert", "email", params.Email)
		return model.User{}, apperr.NewErrEmailIsTaken(params.Email)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	s.logger.InfoContext(ctx, "User service: user created", "user_id", user.ID)

	return user, nil
}

// UpdateUser overwrites email, names, role and the active flag. The password
// is never touched. A blank role keeps the stored one.
func (s *User) UpdateUser(ctx context.Context, params model.UpdateUserParams) (model.User, error) {
	if violations := s.validator.UpdateUser(params); len(violations) > 0 {
		return model.User{}, s.invalid(ctx, "UpdateUser", violations)
	}

	user, err := s.getExisting(ctx, params.ID)
	if err != nil {
		return model.User{}, err
	}

	if user.Email != params.Email {
		if err := s.ensureEmailFree(ctx, params.Email, params.ID); err != nil {
			return model.User{}, err
		}
	}

	user.Email = params.Email
	user.FirstName = params.FirstName
	user.LastName = params.LastName
	if role := strings.TrimSpace(params.Role); role != "" {
		user.Role = role
	}
	user.IsActive = params.IsActive

	err = s.store.Update(ctx, user)
	if errors.Is(err, model.ErrAlreadyExists) {
		s.logger.WarnContext(ctx, "User service: email taken on update", "user_id", user.ID, "email", params.Email)
		return model.User{}, apperr.NewErrEmailIsTaken(params.Email)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.InfoContext(ctx, "User service: user updated", "user_id", user.ID)

	return user, nil
}

// DeleteUser marks the user inactive. Deleting an inactive user succeeds again.
func (s *User) DeleteUser(ctx context.Context, id int64) (string, error) {
	if violations := s.validator.UserID(id); len(violations) > 0 {
		return "", s.invalid(ctx, "DeleteUser", violations)
	}

	user, err := s.getExisting(ctx, id)
	if err != nil {
		return "", err
	}

	user.IsActive = false
	if err := s.store.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to deactivate user: %w", err)
	}

	s.logger.InfoContext(ctx, "User service: user deactivated", "user_id", id)

	return fmt.Sprintf("user with ID %d deleted successfully", id), nil
}

func (s *User) getExisting(ctx context.Context, id int64) (model.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.WarnContext(ctx, "User service: user not found", "user_id", id)
		return model.User{}, apperr.NewErrUserNotFound(id)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// ensureEmailFree fails when another user, active or not, owns email.
func (s *User) ensureEmailFree(ctx context.Context, email string, excludeID int64) error {
	_, err := s.store.FindByEmail(ctx, email, excludeID)
	if err == nil {
		s.logger.WarnContext(ctx, "User service: email taken", "email", email)
		return apperr.NewErrEmailIsTaken(email)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	return nil
}

func (s *User) invalid(ctx context.Context, op string, violations []apperr.Violation) *apperr.Error {
	appErr := apperr.NewErrInvalidArgument(violations)
	s.logger.WarnContext(ctx, "User service: validation failed", "operation", op, "error", appErr.Message)
	return appErr
}
