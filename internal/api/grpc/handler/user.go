package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/dtroode/users-server/api/userapi"
	"github.com/dtroode/users-server/internal/apperr"
	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/model"
)

// UserService defines the user-management operations behind the handler.
type UserService interface {
	ListUsers(ctx context.Context, params model.ListUsersParams) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	CreateUser(ctx context.Context, params model.CreateUserParams) (model.User, error)
	UpdateUser(ctx context.Context, params model.UpdateUserParams) (model.User, error)
	DeleteUser(ctx context.Context, id int64) (string, error)
}

// User handles gRPC endpoints of users.UserService.
type User struct {
	userapi.UnimplementedUserServiceServer
	userService    UserService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewUser creates a new User handler.
func NewUser(userService UserService, contextManager model.ContextManager, logger *logger.Logger) *User {
	return &User{
		userService:    userService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// ListUsers streams one page of users ordered by first name. A client
// cancellation stops the stream without an error.
func (h *User) ListUsers(req *userapi.ListUsersRequest, stream grpc.ServerStreamingServer[userapi.UserResponse]) error {
	ctx := stream.Context()

	h.logger.DebugContext(ctx, "User handler: processing list request",
		"page_number", req.PageNumber,
		"page_size", req.PageSize,
		"active_only", req.ActiveOnly)

	users, err := h.userService.ListUsers(ctx, model.ListUsersParams{
		PageNumber: int(req.PageNumber),
		PageSize:   int(req.PageSize),
		ActiveOnly: req.ActiveOnly,
	})
	if err != nil {
		return h.fail(ctx, "list", err, "page_number", req.PageNumber, "page_size", req.PageSize)
	}

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			h.logger.WarnContext(ctx, "User handler: list canceled by client", "sent", sent)
			return nil
		}

		if err := stream.Send(toUserResponse(u)); err != nil {
			if ctx.Err() != nil {
				h.logger.WarnContext(ctx, "User handler: list canceled by client", "sent", sent)
				return nil
			}
			h.logger.ErrorContext(ctx, "User handler: failed to send user",
				"user_id", u.ID,
				"error", err.Error())
			return err
		}
		sent++
	}

	h.logger.InfoContext(ctx, "User handler: list completed", "sent", sent)

	return nil
}

// GetUser returns a single user by ID.
func (h *User) GetUser(ctx context.Context, req *userapi.GetUserRequest) (*userapi.UserResponse, error) {
	h.logger.DebugContext(ctx, "User handler: processing get request", "user_id", req.GetId())

	user, err := h.userService.GetUser(ctx, req.GetId())
	if err != nil {
		return nil, h.fail(ctx, "get", err, "user_id", req.GetId())
	}

	return toUserResponse(user), nil
}

// CreateUser registers a new active user.
func (h *User) CreateUser(ctx context.Context, req *userapi.CreateUserRequest) (*userapi.UserResponse, error) {
	h.logger.DebugContext(ctx, "User handler: processing create request", "email", req.Email)

	user, err := h.userService.CreateUser(ctx, model.CreateUserParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return nil, h.fail(ctx, "create", err, "email", req.Email)
	}

	h.logger.InfoContext(ctx, "User handler: user created", "user_id", user.ID)

	return toUserResponse(user), nil
}

// UpdateUser overwrites the mutable fields of a user.
func (h *User) UpdateUser(ctx context.Context, req *userapi.UpdateUserRequest) (*userapi.UserResponse, error) {
	h.logger.DebugContext(ctx, "User handler: processing update request", "user_id", req.GetId())

	user, err := h.userService.UpdateUser(ctx, model.UpdateUserParams{
		ID:        req.GetId(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return nil, h.fail(ctx, "update", err, "user_id", req.GetId(), "email", req.Email)
	}

	h.logger.InfoContext(ctx, "User handler: user updated", "user_id", user.ID)

	return toUserResponse(user), nil
}

// DeleteUser deactivates a user.
func (h *User) DeleteUser(ctx context.Context, req *userapi.DeleteUserRequest) (*userapi.DeleteUserResponse, error) {
	h.logger.DebugContext(ctx, "User handler: processing delete request", "user_id", req.GetId())

	message, err := h.userService.DeleteUser(ctx, req.GetId())
	if err != nil {
		return nil, h.fail(ctx, "delete", err, "user_id", req.GetId())
	}

	h.logger.InfoContext(ctx, "User handler: user deleted", "user_id", req.GetId())

	return &userapi.DeleteUserResponse{
		Success: true,
		Message: message,
	}, nil
}

// fail logs err with the operation context and converts it to a status.
func (h *User) fail(ctx context.Context, op string, err error, attrs ...any) error {
	attrs = append(attrs, "operation", op)
	if requestID, ok := h.contextManager.GetRequestIDFromContext(ctx); ok {
		attrs = append(attrs, "request_id", requestID)
	}

	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindInternal {
		h.logger.WarnContext(ctx, "User handler: request rejected",
			append(attrs, "kind", appErr.Kind.String(), "error", appErr.Message)...)
	} else {
		h.logger.ErrorContext(ctx, "User handler: request failed",
			append(attrs, "error", err.Error())...)
	}

	return handleError(err)
}

func toUserResponse(u model.User) *userapi.UserResponse {
	resp := &userapi.UserResponse{
		Id:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
		IsActive:  u.IsActive,
	}
	if u.LastLogin != nil {
		resp.LastLogin = u.LastLogin.UTC().Format(time.RFC3339Nano)
	}

	return resp
}
