package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListUsersParams_OffsetLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		params     ListUsersParams
		wantOffset int
		wantLimit  int
	}{
		{name: "first page", params: ListUsersParams{PageNumber: 1, PageSize: 10}, wantOffset: 0, wantLimit: 10},
		{name: "third page", params: ListUsersParams{PageNumber: 3, PageSize: 25}, wantOffset: 50, wantLimit: 25},
		{name: "defaults for zero values", params: ListUsersParams{}, wantOffset: 0, wantLimit: DefaultPageSize},
		{name: "negative page uses first page", params: ListUsersParams{PageNumber: -4, PageSize: 5}, wantOffset: 0, wantLimit: 5},
		{name: "negative size uses default size", params: ListUsersParams{PageNumber: 2, PageSize: -1}, wantOffset: DefaultPageSize, wantLimit: DefaultPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantOffset, tt.params.Offset())
			assert.Equal(t, tt.wantLimit, tt.params.Limit())
		})
	}
}
