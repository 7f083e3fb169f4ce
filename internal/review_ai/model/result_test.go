package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int64
		totalPages int
	}{
		{"exact multiple", 1, 20, 40, 2},
		{"partial last page", 3, 20, 45, 3},
		{"empty set", 1, 20, 0, 1},
		{"single item", 1, 20, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.totalPages, p.TotalPages)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}

func TestIdentityKey_DistinguishesSources(t *testing.T) {
	assert.NotEqual(t, IdentityKey("42", "judge.me"), IdentityKey("42", "judge.me_html"))
	assert.Equal(t, "judge.me:42", IdentityKey("42", "judge.me"))
}
