package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/users-server/internal/apperr"
	"github.com/dtroode/users-server/internal/model"
)

func messagesOf(violations []apperr.Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Message)
	}
	return out
}

func TestValidator_ListUsers(t *testing.T) {
	t.Parallel()

	v := New()

	tests := []struct {
		name   string
		params model.ListUsersParams
		want   []string
	}{
		{name: "valid", params: model.ListUsersParams{PageNumber: 1, PageSize: 10}},
		{name: "max page size", params: model.ListUsersParams{PageNumber: 2, PageSize: 100}},
		{
			name:   "zero page number",
			params: model.ListUsersParams{PageNumber: 0, PageSize: 10},
			want:   []string{"page number must be greater than zero"},
		},
		{
			name:   "negative page size",
			params: model.ListUsersParams{PageNumber: 1, PageSize: -3},
			want:   []string{"page size must be greater than zero"},
		},
		{
			name:   "page size over limit",
			params: model.ListUsersParams{PageNumber: 1, PageSize: 101},
			want:   []string{"page size cannot exceed 100 items"},
		},
		{
			name:   "both invalid keep field order",
			params: model.ListUsersParams{PageNumber: -1, PageSize: 0},
			want:   []string{"page number must be greater than zero", "page size must be greater than zero"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := v.ListUsers(tt.params)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, messagesOf(got))
		})
	}
}

func TestValidator_UserID(t *testing.T) {
	t.Parallel()

	v := New()

	for _, id := range []int64{0, -1, -100} {
		got := v.UserID(id)
		if assert.Len(t, got, 1) {
			assert.Equal(t, "id", got[0].Field)
			assert.Equal(t, "user ID must be greater than zero", got[0].Message)
		}
	}

	assert.Empty(t, v.UserID(1))
}

func TestValidator_CreateUser(t *testing.T) {
	t.Parallel()

	v := New()
	valid := model.CreateUserParams{Email: "a@b.com", Password: "secret1", FirstName: "A", LastName: "B"}

	tests := []struct {
		name   string
		mutate func(p *model.CreateUserParams)
		fields []string
	}{
		{name: "valid without role", mutate: func(p *model.CreateUserParams) {}},
		{name: "missing email", mutate: func(p *model.CreateUserParams) { p.Email = "" }, fields: []string{"email"}},
		{name: "malformed email", mutate: func(p *model.CreateUserParams) { p.Email = "not-an-email" }, fields: []string{"email"}},
		{name: "short password", mutate: func(p *model.CreateUserParams) { p.Password = "12345" }, fields: []string{"password"}},
		{name: "empty password", mutate: func(p *model.CreateUserParams) { p.Password = "" }, fields: []string{"password"}},
		{name: "missing names", mutate: func(p *model.CreateUserParams) { p.FirstName = ""; p.LastName = "" }, fields: []string{"firstName", "lastName"}},
		{name: "long role", mutate: func(p *model.CreateUserParams) { p.Role = strings.Repeat("r", 21) }, fields: []string{"role"}},
		{name: "long email", mutate: func(p *model.CreateUserParams) { p.Email = strings.Repeat("a", 95) + "@b.com" }, fields: []string{"email"}},
		{name: "blank email", mutate: func(p *model.CreateUserParams) { p.Email = "   " }, fields: []string{"email"}},
		{name: "whitespace password", mutate: func(p *model.CreateUserParams) { p.Password = "      " }, fields: []string{"password"}},
		{name: "whitespace names", mutate: func(p *model.CreateUserParams) { p.FirstName = "   "; p.LastName = "\t" }, fields: []string{"firstName", "lastName"}},
		{name: "padded names are kept", mutate: func(p *model.CreateUserParams) { p.FirstName = " Ana "; p.Password = " secret " }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			params := valid
			tt.mutate(&params)

			got := v.CreateUser(params)
			fields := make([]string, 0, len(got))
			for _, violation := range got {
				fields = append(fields, violation.Field)
			}
			if tt.fields == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestValidator_UpdateUser(t *testing.T) {
	t.Parallel()

	v := New()

	got := v.UpdateUser(model.UpdateUserParams{ID: 0, Email: "bad", FirstName: "", LastName: "L"})
	assert.Equal(t, []string{
		"user ID must be greater than zero",
		"a valid email is required",
		"first name is required",
	}, messagesOf(got))

	assert.Empty(t, v.UpdateUser(model.UpdateUserParams{ID: 4, Email: "x@y.org", FirstName: "F", LastName: "L"}))
}

func TestValidator_RejectsWhitespaceOnly(t *testing.T) {
	t.Parallel()

	v := New()

	got := v.CreateUser(model.CreateUserParams{Email: "a@b.com", Password: "      ", FirstName: "   ", LastName: "\t"})
	assert.Equal(t, []string{
		"password must be at least 6 characters",
		"first name is required",
		"last name is required",
	}, messagesOf(got))

	got = v.UpdateUser(model.UpdateUserParams{ID: 1, Email: "a@b.com", FirstName: "  ", LastName: " "})
	assert.Equal(t, []string{
		"first name is required",
		"last name is required",
	}, messagesOf(got))
}

func TestMessage_Fallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "nickname is required", message("nickname", "required", ""))
	assert.Equal(t, "nickname must be at most 5", message("nickname", "max", "5"))
	assert.Equal(t, "nickname failed oneof validation (a b)", message("nickname", "oneof", "a b"))
}
