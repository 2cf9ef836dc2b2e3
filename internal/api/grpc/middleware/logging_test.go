package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/users-server/internal/mocks"
	"github.com/dtroode/users-server/internal/testutil"
)

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestLogging_HandleGRPC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  grpc.UnaryHandler
		wantCode codes.Code
	}{
		{
			name: "success path",
			handler: func(ctx context.Context, req any) (any, error) {
				time.Sleep(10 * time.Millisecond)
				return "ok", nil
			},
			wantCode: codes.OK,
		},
		{
			name: "grpc error propagates",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, status.Error(codes.InvalidArgument, "bad input")
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name: "non-grpc error becomes Internal",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, errors.New("boom")
			},
			wantCode: codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cm := mocks.NewContextManager(t)
			cm.On("GetRequestIDFromContext", mock.Anything).Return("req-1", true)
			lg := NewLogging(cm, testutil.MakeNoopLogger())

			info := &grpc.UnaryServerInfo{FullMethod: "/users.UserService/GetUser"}
			resp, err := lg.HandleGRPC(context.Background(), struct{}{}, info, tt.handler)

			if tt.wantCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "ok", resp)
				return
			}

			st, ok := status.FromError(err)
			gotCode := codes.Internal
			if ok {
				gotCode = st.Code()
			}
			assert.Equal(t, tt.wantCode, gotCode)
		})
	}
}

func TestLogging_HandleGRPCStream(t *testing.T) {
	t.Parallel()

	cm := mocks.NewContextManager(t)
	cm.On("GetRequestIDFromContext", mock.Anything).Return("", false).Twice()
	lg := NewLogging(cm, testutil.MakeNoopLogger())

	info := &grpc.StreamServerInfo{FullMethod: "/users.UserService/ListUsers", IsServerStream: true}
	ss := &fakeServerStream{ctx: context.Background()}

	called := false
	err := lg.HandleGRPCStream(nil, ss, info, func(srv any, stream grpc.ServerStream) error {
		called = true
		assert.Same(t, ss, stream)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)

	wantErr := status.Error(codes.Canceled, "canceled")
	err = lg.HandleGRPCStream(nil, ss, info, func(srv any, stream grpc.ServerStream) error {
		return wantErr
	})
	assert.Equal(t, wantErr, err)
}
