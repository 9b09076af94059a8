package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		page       int64
		limit      int64
		totalPages int64
	}{
		{name: "exact pages", total: 20, page: 1, limit: 10, totalPages: 2},
		{name: "partial last page", total: 21, page: 3, limit: 10, totalPages: 3},
		{name: "empty result", total: 0, page: 1, limit: 10, totalPages: 0},
		{name: "zero limit", total: 5, page: 1, limit: 0, totalPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.total, tt.page, tt.limit)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.totalPages, p.TotalPages)
		})
	}
}

func TestNewDraftOrder(t *testing.T) {
	o := NewDraftOrder(&User{ID: 7, Name: "John Doe"})
	assert.Equal(t, int64(7), o.UserID)
	assert.Equal(t, OrderStatusDraft, o.Status)
	assert.False(t, o.CreatedAt.IsZero())

	o = NewDraftOrder(nil)
	assert.Zero(t, o.UserID)
	assert.Equal(t, OrderStatusDraft, o.Status)
}

func TestUser_IsNew(t *testing.T) {
	assert.True(t, (&User{Name: "John Doe"}).IsNew())
	assert.False(t, (&User{ID: 1}).IsNew())
}

func TestPagination_HasNext(t *testing.T) {
	assert.True(t, NewPagination(21, 2, 10).HasNext())
	assert.False(t, NewPagination(21, 3, 10).HasNext())
	assert.False(t, NewPagination(0, 1, 10).HasNext())
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, int64(0), PageOffset(1, 10))
	assert.Equal(t, int64(20), PageOffset(3, 10))
	assert.Equal(t, int64(0), PageOffset(0, 10))
	assert.Equal(t, int64(0), PageOffset(2, 0))
}
