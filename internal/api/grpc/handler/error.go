package handler

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/users-server/internal/apperr"
)

// handleError converts a service failure to a gRPC status. Only business
// failures keep their message; everything else becomes Internal.
func handleError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	}

	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal {
		return status.Error(codes.Internal, "internal server error")
	}

	st := status.New(appErr.GRPCCode(), appErr.Message)
	if appErr.Kind == apperr.KindInvalidArgument && len(appErr.Violations) > 0 {
		badRequest := &errdetails.BadRequest{}
		for _, v := range appErr.Violations {
			badRequest.FieldViolations = append(badRequest.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       v.Field,
				Description: v.Message,
			})
		}
		if detailed, err := st.WithDetails(badRequest); err == nil {
			st = detailed
		}
	}

	return st.Err()
}
