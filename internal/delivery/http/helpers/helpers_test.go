package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"defaults", "", DefaultPage, DefaultPageSize},
		{"explicit", "page=3&page_size=10", 3, 10},
		{"clamped", "page_size=1000", DefaultPage, MaxPageSize},
		{"invalid falls back", "page=0&page_size=abc", DefaultPage, DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/newsletter/campaigns?"+tt.query, nil)
			p := ParsePagination(r)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPageSize, p.PageSize)
		})
	}
}

func TestNewPaginationMeta(t *testing.T) {
	assert.Equal(t, PaginationMeta{Page: 2, PageSize: 10, Total: 21, TotalPages: 3}, NewPaginationMeta(2, 10, 21))
	assert.Equal(t, 0, NewPaginationMeta(1, 0, 5).TotalPages)
}

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Validate() []string {
	if r.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
	}{
		{"valid", `{"name":"x"}`, true, http.StatusOK},
		{"unknown field", `{"name":"x","extra":1}`, false, http.StatusBadRequest},
		{"validation error", `{"name":""}`, false, http.StatusBadRequest},
		{"malformed", `{`, false, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest sampleRequest

			ok := DecodeAndValidate(rr, r, &dest)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantCode, rr.Code)
			if !ok {
				var env APIResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
				require.NotNil(t, env.Error)
				assert.Equal(t, ErrCodeBadRequest, env.Error.Code)
			}
		})
	}
}
