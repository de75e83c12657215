package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	t.Run("first page", func(t *testing.T) {
		p := Paginate(all, Filter{Page: 1, PageSize: 2})
		assert.Equal(t, []int{1, 2}, p.Items)
		assert.Equal(t, int64(5), p.Total)
		assert.Equal(t, 3, p.TotalPages)
	})

	t.Run("last partial page", func(t *testing.T) {
		p := Paginate(all, Filter{Page: 3, PageSize: 2})
		assert.Equal(t, []int{5}, p.Items)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		p := Paginate(all, Filter{Page: 9, PageSize: 2})
		assert.Empty(t, p.Items)
		assert.Equal(t, int64(5), p.Total)
	})

	t.Run("zero values fall back to defaults", func(t *testing.T) {
		p := Paginate(all, Filter{})
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 20, p.PageSize)
		assert.Len(t, p.Items, 5)
	})
}
