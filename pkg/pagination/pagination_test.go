package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func paramsFor(query string) Params {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews"+query, nil)
	return FromRequest(req)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		page    int
		perPage int
		offset  int
	}{
		{"defaults", "", 1, 20, 0},
		{"custom values", "?page=3&per_page=50", 3, 50, 100},
		{"negative page falls back", "?page=-1", 1, 20, 0},
		{"zero page falls back", "?page=0", 1, 20, 0},
		{"non-numeric page falls back", "?page=abc", 1, 20, 0},
		{"per_page above cap falls back", "?per_page=200", 1, 20, 0},
		{"per_page at cap accepted", "?per_page=100", 1, 100, 0},
		{"zero per_page falls back", "?per_page=0", 1, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(tt.query)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestFromRequest_OffsetCalculation(t *testing.T) {
	tests := []struct {
		page    string
		perPage string
		offset  int
	}{
		{"1", "10", 0},
		{"2", "10", 10},
		{"3", "25", 50},
		{"5", "20", 80},
	}
	for _, tt := range tests {
		p := paramsFor("?page=" + tt.page + "&per_page=" + tt.perPage)
		assert.Equal(t, tt.offset, p.Offset)
	}
}

func TestNewResult_Basic(t *testing.T) {
	data := []string{"rev-1", "rev-2", "rev-3"}
	params := Params{Page: 1, PerPage: 10, Offset: 0}
	result := NewResult(data, 3, params)

	assert.Equal(t, data, result.Data)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 10, result.PerPage)
	assert.Equal(t, 1, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.False(t, result.HasPrev)
}

func TestNewResult_MultiplePages(t *testing.T) {
	params := Params{Page: 2, PerPage: 2, Offset: 2}
	result := NewResult([]string{"rev-3", "rev-4"}, 10, params)

	assert.Equal(t, 10, result.TotalCount)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 5, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestNewResult_LastPage(t *testing.T) {
	params := Params{Page: 3, PerPage: 5, Offset: 10}
	result := NewResult([]string{"rev-11"}, 11, params)

	assert.Equal(t, 3, result.TotalPages) // ceil(11/5)
	assert.False(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestNewResult_FirstPage(t *testing.T) {
	params := Params{Page: 1, PerPage: 5, Offset: 0}
	result := NewResult([]string{"rev-1"}, 20, params)

	assert.True(t, result.HasNext)
	assert.False(t, result.HasPrev)
}

func TestNewResult_EmptyData(t *testing.T) {
	params := Params{Page: 1, PerPage: 20, Offset: 0}
	result := NewResult([]string{}, 0, params)

	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, 0, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.False(t, result.HasPrev)
}
