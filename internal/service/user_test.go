package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/users-server/internal/apperr"
	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/mocks"
	"github.com/dtroode/users-server/internal/model"
	"github.com/dtroode/users-server/internal/testutil"
	"github.com/dtroode/users-server/internal/validation"
)

var fixedNow = time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)

func newTestUserService(t *testing.T) (*User, *mocks.UserStore, *mocks.PasswordHasher) {
	t.Helper()

	store := mocks.NewUserStore(t)
	hasher := mocks.NewPasswordHasher(t)

	s := NewUser(store, hasher, validation.New(), testutil.MakeNoopLogger())
	s.now = func() time.Time { return fixedNow }

	return s, store, hasher
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()

	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	require.Equal(t, kind, appErr.Kind)
	return appErr
}

func TestUser_ListUsers(t *testing.T) {
	t.Parallel()

	users := []model.User{{ID: 1, FirstName: "Ana"}, {ID: 2, FirstName: "Bob"}}

	tests := []struct {
		name     string
		params   model.ListUsersParams
		setup    func(store *mocks.UserStore)
		want     []model.User
		wantKind *apperr.Kind
		wantErr  bool
	}{
		{
			name:   "success",
			params: model.ListUsersParams{PageNumber: 1, PageSize: 10, ActiveOnly: true},
			setup: func(store *mocks.UserStore) {
				store.On("List", mock.Anything, model.ListUsersParams{PageNumber: 1, PageSize: 10, ActiveOnly: true}).Return(users, nil)
			},
			want: users,
		},
		{
			name:     "zero page number",
			params:   model.ListUsersParams{PageNumber: 0, PageSize: 10},
			wantKind: kindPtr(apperr.KindInvalidArgument),
		},
		{
			name:     "negative page size",
			params:   model.ListUsersParams{PageNumber: 1, PageSize: -1},
			wantKind: kindPtr(apperr.KindInvalidArgument),
		},
		{
			name:     "page size over limit",
			params:   model.ListUsersParams{PageNumber: 1, PageSize: 101},
			wantKind: kindPtr(apperr.KindInvalidArgument),
		},
		{
			name:   "store failure",
			params: model.ListUsersParams{PageNumber: 2, PageSize: 5},
			setup: func(store *mocks.UserStore) {
				store.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, store, _ := newTestUserService(t)
			if tt.setup != nil {
				tt.setup(store)
			}

			got, err := s.ListUsers(context.Background(), tt.params)
			switch {
			case tt.wantKind != nil:
				requireKind(t, err, *tt.wantKind)
			case tt.wantErr:
				require.Error(t, err)
				_, isApp := apperr.As(err)
				assert.False(t, isApp)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestUser_ListUsers_JoinsViolations(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestUserService(t)

	_, err := s.ListUsers(context.Background(), model.ListUsersParams{PageNumber: -1, PageSize: 0})
	appErr := requireKind(t, err, apperr.KindInvalidArgument)
	assert.Equal(t, "page number must be greater than zero, page size must be greater than zero", appErr.Message)
	assert.Len(t, appErr.Violations, 2)
}

func TestUser_GetUser(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		want := model.User{ID: 3, Email: "a@b.com", IsActive: true}
		store.On("GetByID", mock.Anything, int64(3)).Return(want, nil)

		got, err := s.GetUser(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("non positive id", func(t *testing.T) {
		t.Parallel()

		s, _, _ := newTestUserService(t)
		for _, id := range []int64{0, -5} {
			_, err := s.GetUser(context.Background(), id)
			appErr := requireKind(t, err, apperr.KindInvalidArgument)
			assert.Equal(t, "user ID must be greater than zero", appErr.Message)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(9)).Return(model.User{}, model.ErrNotFound)

		_, err := s.GetUser(context.Background(), 9)
		appErr := requireKind(t, err, apperr.KindNotFound)
		assert.Equal(t, "user with ID 9 does not exist", appErr.Message)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(9)).Return(model.User{}, errors.New("boom"))

		_, err := s.GetUser(context.Background(), 9)
		require.Error(t, err)
		_, isApp := apperr.As(err)
		assert.False(t, isApp)
	})
}

func TestUser_CreateUser(t *testing.T) {
	t.Parallel()

	params := model.CreateUserParams{
		Email:     "a@b.com",
		Password:  "secret1",
		FirstName: "A",
		LastName:  "B",
	}

	t.Run("defaults role and activates", func(t *testing.T) {
		t.Parallel()

		s, store, hasher := newTestUserService(t)
		store.On("FindByEmail", mock.Anything, "a@b.com", int64(0)).Return(model.User{}, model.ErrNotFound)
		hasher.On("Hash", "secret1").Return("hashed", nil)
		store.On("Insert", mock.Anything, model.User{
			Email:        "a@b.com",
			FirstName:    "A",
			LastName:     "B",
			PasswordHash: "hashed",
			Role:         model.DefaultRole,
			CreatedAt:    fixedNow,
			IsActive:     true,
		}).Return(func(_ context.Context, u model.User) (model.User, error) {
			u.ID = 42
			return u, nil
		})

		got, err := s.CreateUser(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.ID)
		assert.Equal(t, "Customer", got.Role)
		assert.True(t, got.IsActive)
		assert.Equal(t, fixedNow, got.CreatedAt)
	})

	t.Run("keeps explicit role", func(t *testing.T) {
		t.Parallel()

		s, store, hasher := newTestUserService(t)
		p := params
		p.Role = "Admin"
		store.On("FindByEmail", mock.Anything, p.Email, int64(0)).Return(model.User{}, model.ErrNotFound)
		hasher.On("Hash", p.Password).Return("hashed", nil)
		store.On("Insert", mock.Anything, mock.MatchedBy(func(u model.User) bool { return u.Role == "Admin" })).
			Return(model.User{ID: 1, Role: "Admin"}, nil)

		got, err := s.CreateUser(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, "Admin", got.Role)
	})

	t.Run("email taken by existing user", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("FindByEmail", mock.Anything, "a@b.com", int64(0)).Return(model.User{ID: 7, IsActive: false}, nil)

		_, err := s.CreateUser(context.Background(), params)
		appErr := requireKind(t, err, apperr.KindAlreadyExists)
		assert.Equal(t, "a user with email 'a@b.com' already exists", appErr.Message)
	})

	t.Run("unique constraint on insert", func(t *testing.T) {
		t.Parallel()

		s, store, hasher := newTestUserService(t)
		store.On("FindByEmail", mock.Anything, "a@b.com", int64(0)).Return(model.User{}, model.ErrNotFound)
		hasher.On("Hash", "secret1").Return("hashed", nil)
		store.On("Insert", mock.Anything, mock.Anything).Return(model.User{}, model.ErrAlreadyExists)

		_, err := s.CreateUser(context.Background(), params)
		requireKind(t, err, apperr.KindAlreadyExists)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		s, _, _ := newTestUserService(t)

		_, err := s.CreateUser(context.Background(), model.CreateUserParams{Email: "nope", Password: "123"})
		appErr := requireKind(t, err, apperr.KindInvalidArgument)
		assert.Equal(t,
			"a valid email is required, password must be at least 6 characters, first name is required, last name is required",
			appErr.Message)
	})

	t.Run("whitespace-only fields are rejected before the store", func(t *testing.T) {
		t.Parallel()

		s, store, hasher := newTestUserService(t)

		_, err := s.CreateUser(context.Background(), model.CreateUserParams{
			Email: "a@b.com", Password: "      ", FirstName: "   ", LastName: "\t",
		})
		appErr := requireKind(t, err, apperr.KindInvalidArgument)
		assert.Equal(t,
			"password must be at least 6 characters, first name is required, last name is required",
			appErr.Message)
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything, mock.Anything)
		hasher.AssertNotCalled(t, "Hash", mock.Anything)
	})

	t.Run("password too long", func(t *testing.T) {
		t.Parallel()

		s, store, hasher := newTestUserService(t)
		store.On("FindByEmail", mock.Anything, "a@b.com", int64(0)).Return(model.User{}, model.ErrNotFound)
		hasher.On("Hash", "secret1").Return("", model.ErrPasswordTooLong)

		_, err := s.CreateUser(context.Background(), params)
		requireKind(t, err, apperr.KindInvalidArgument)
	})

	t.Run("lookup failure", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("FindByEmail", mock.Anything, "a@b.com", int64(0)).Return(model.User{}, errors.New("boom"))

		_, err := s.CreateUser(context.Background(), params)
		require.Error(t, err)
		_, isApp := apperr.As(err)
		assert.False(t, isApp)
	})
}

func TestUser_UpdateUser(t *testing.T) {
	t.Parallel()

	stored := model.User{
		ID:           5,
		Email:        "old@b.com",
		FirstName:    "Old",
		LastName:     "Name",
		PasswordHash: "hash",
		Role:         "Premium",
		CreatedAt:    fixedNow.Add(-time.Hour),
		IsActive:     true,
	}

	t.Run("same email skips uniqueness check", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(5)).Return(stored, nil)

		want := stored
		want.FirstName = "New"
		want.IsActive = false
		store.On("Update", mock.Anything, want).Return(nil)

		got, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 5, Email: "old@b.com", FirstName: "New", LastName: "Name", IsActive: false,
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new email checked against other users", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(5)).Return(stored, nil)
		store.On("FindByEmail", mock.Anything, "new@b.com", int64(5)).Return(model.User{}, model.ErrNotFound)
		store.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.Email == "new@b.com" && u.Role == "Admin" && u.PasswordHash == "hash" && u.CreatedAt.Equal(stored.CreatedAt)
		})).Return(nil)

		got, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 5, Email: "new@b.com", FirstName: "Old", LastName: "Name", Role: "Admin", IsActive: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "new@b.com", got.Email)
	})

	t.Run("blank role keeps stored role", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(5)).Return(stored, nil)
		store.On("FindByEmail", mock.Anything, "new@b.com", int64(5)).Return(model.User{}, model.ErrNotFound)

		want := stored
		want.Email = "new@b.com"
		want.FirstName = "New"
		want.LastName = "Last"
		store.On("Update", mock.Anything, want).Return(nil)

		got, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 5, Email: "new@b.com", FirstName: "New", LastName: "Last", Role: "  ", IsActive: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "Premium", got.Role)
		assert.Equal(t, want, got)
	})

	t.Run("whitespace-only names are rejected", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)

		_, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 5, Email: "old@b.com", FirstName: "  ", LastName: " ", IsActive: true,
		})
		appErr := requireKind(t, err, apperr.KindInvalidArgument)
		assert.Equal(t, "first name is required, last name is required", appErr.Message)
		store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("email owned by another user", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(5)).Return(stored, nil)
		store.On("FindByEmail", mock.Anything, "taken@b.com", int64(5)).Return(model.User{ID: 6}, nil)

		_, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 5, Email: "taken@b.com", FirstName: "Old", LastName: "Name", IsActive: true,
		})
		requireKind(t, err, apperr.KindAlreadyExists)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(5)).Return(model.User{}, model.ErrNotFound)

		_, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 5, Email: "old@b.com", FirstName: "Old", LastName: "Name",
		})
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()

		s, _, _ := newTestUserService(t)

		_, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 0, Email: "old@b.com", FirstName: "Old", LastName: "Name",
		})
		requireKind(t, err, apperr.KindInvalidArgument)
	})

	t.Run("race on unique index", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(5)).Return(stored, nil)
		store.On("FindByEmail", mock.Anything, "new@b.com", int64(5)).Return(model.User{}, model.ErrNotFound)
		store.On("Update", mock.Anything, mock.Anything).Return(model.ErrAlreadyExists)

		_, err := s.UpdateUser(context.Background(), model.UpdateUserParams{
			ID: 5, Email: "new@b.com", FirstName: "Old", LastName: "Name", IsActive: true,
		})
		requireKind(t, err, apperr.KindAlreadyExists)
	})
}

func TestUser_DeleteUser(t *testing.T) {
	t.Parallel()

	t.Run("deactivates", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(8)).Return(model.User{ID: 8, Email: "x@y.com", IsActive: true}, nil)
		store.On("Update", mock.Anything, model.User{ID: 8, Email: "x@y.com", IsActive: false}).Return(nil)

		msg, err := s.DeleteUser(context.Background(), 8)
		require.NoError(t, err)
		assert.Equal(t, "user with ID 8 deleted successfully", msg)
	})

	t.Run("already inactive still succeeds", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(8)).Return(model.User{ID: 8, IsActive: false}, nil)
		store.On("Update", mock.Anything, model.User{ID: 8, IsActive: false}).Return(nil)

		_, err := s.DeleteUser(context.Background(), 8)
		require.NoError(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(8)).Return(model.User{}, model.ErrNotFound)

		_, err := s.DeleteUser(context.Background(), 8)
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()

		s, _, _ := newTestUserService(t)

		_, err := s.DeleteUser(context.Background(), -1)
		requireKind(t, err, apperr.KindInvalidArgument)
	})

	t.Run("update failure", func(t *testing.T) {
		t.Parallel()

		s, store, _ := newTestUserService(t)
		store.On("GetByID", mock.Anything, int64(8)).Return(model.User{ID: 8, IsActive: true}, nil)
		store.On("Update", mock.Anything, mock.Anything).Return(errors.New("boom"))

		_, err := s.DeleteUser(context.Background(), 8)
		require.Error(t, err)
		_, isApp := apperr.As(err)
		assert.False(t, isApp)
	})
}

func kindPtr(k apperr.Kind) *apperr.Kind {
	return &k
}

type requestKey struct{}

// recordingHandler keeps the request value of every record's context.
type recordingHandler struct {
	slog.Handler
	mu   sync.Mutex
	seen []any
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	h.seen = append(h.seen, ctx.Value(requestKey{}))
	h.mu.Unlock()
	return h.Handler.Handle(ctx, r)
}

func TestUser_ValidationLogsCarryContext(t *testing.T) {
	t.Parallel()

	h := &recordingHandler{Handler: slog.NewTextHandler(io.Discard, nil)}
	s := NewUser(mocks.NewUserStore(t), mocks.NewPasswordHasher(t), validation.New(), &logger.Logger{Logger: slog.New(h)})

	ctx := context.WithValue(context.Background(), requestKey{}, "req-42")

	_, err := s.GetUser(ctx, 0)
	requireKind(t, err, apperr.KindInvalidArgument)
	_, err = s.ListUsers(ctx, model.ListUsersParams{})
	requireKind(t, err, apperr.KindInvalidArgument)

	assert.Equal(t, []any{"req-42", "req-42"}, h.seen)
}
