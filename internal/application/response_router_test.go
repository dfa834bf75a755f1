package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/fundcrawl/internal/domain"
)

func testRoutes() []ResponseRoute {
	return []ResponseRoute{
		{Pattern: "/_api/fund-guide/guide/", Slot: "fund_guide", JSONPath: "isin"},
		{Pattern: "/_api/fund-guide/chart/", Slot: "chart", Method: "GET", JSONPath: "dataSerie"},
		{Pattern: "/_api/fund-guide/", Slot: "catch_all", RequireJSON: true},
	}
}

func TestResponseRouterRoutes(t *testing.T) {
	t.Parallel()

	router, err := NewResponseRouter(testRoutes())
	require.NoError(t, err)
	assert.Equal(t, []domain.SlotName{"fund_guide", "chart", "catch_all"}, router.Slots())

	tests := []struct {
		name    string
		resp    domain.CapturedResponse
		matched bool
		want    RoutedResponse
	}{
		{
			name:    "guide payload",
			resp:    domain.CapturedResponse{Method: "GET", URL: "https://x.test/_api/fund-guide/guide/517", Status: 200, Body: `{"isin":"SE0000000001","name":"Global"}`},
			matched: true,
			want:    RoutedResponse{Slot: "fund_guide", Succeeded: true, Detail: `"SE0000000001"`},
		},
		{
			name:    "bad status",
			resp:    domain.CapturedResponse{Method: "GET", URL: "https://x.test/_api/fund-guide/guide/517", Status: 503, Body: `{}`},
			matched: true,
			want:    RoutedResponse{Slot: "fund_guide", Detail: "http status 503"},
		},
		{
			name:    "missing path",
			resp:    domain.CapturedResponse{Method: "GET", URL: "https://x.test/_api/fund-guide/chart/517/one_year", Status: 200, Body: `{"other":1}`},
			matched: true,
			want:    RoutedResponse{Slot: "chart", Detail: "missing dataSerie"},
		},
		{
			name:    "method mismatch falls through",
			resp:    domain.CapturedResponse{Method: "POST", URL: "https://x.test/_api/fund-guide/chart/517", Status: 200, Body: `{"dataSerie":[]}`},
			matched: true,
			want:    RoutedResponse{Slot: "catch_all", Succeeded: true, Detail: `{"dataSerie":[]}`},
		},
		{
			name:    "invalid json",
			resp:    domain.CapturedResponse{Method: "GET", URL: "https://x.test/_api/fund-guide/list", Status: 200, Body: `<html>`},
			matched: true,
			want:    RoutedResponse{Slot: "catch_all", Detail: "invalid json body"},
		},
		{
			name:    "truncated json",
			resp:    domain.CapturedResponse{Method: "GET", URL: "https://x.test/_api/fund-guide/list", Status: 200, Body: `{"funds":[{"isin":"SE1"}`, Truncated: true},
			matched: true,
			want:    RoutedResponse{Slot: "catch_all", Detail: "body truncated"},
		},
		{
			name:    "empty body",
			resp:    domain.CapturedResponse{Method: "GET", URL: "https://x.test/_api/fund-guide/list", Status: 204},
			matched: true,
			want:    RoutedResponse{Slot: "catch_all", Detail: "empty body"},
		},
		{
			name: "unrelated",
			resp: domain.CapturedResponse{Method: "GET", URL: "https://x.test/static/app.js", Status: 200, Body: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := router.Route(tt.resp)
			require.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseRouterEmptyBodyWithOKStatus(t *testing.T) {
	t.Parallel()

	router, err := NewResponseRouter([]ResponseRoute{{Pattern: "/guide/", Slot: "fund_guide"}})
	require.NoError(t, err)

	got, ok := router.Route(domain.CapturedResponse{URL: "/guide/1", Status: 200, Body: "  "})
	require.True(t, ok)
	assert.Equal(t, RoutedResponse{Slot: "fund_guide", Detail: "empty body"}, got)
}

func TestResponseRouterRejectsIncompleteRoutes(t *testing.T) {
	t.Parallel()

	_, err := NewResponseRouter([]ResponseRoute{{Pattern: "/x", Slot: "a"}, {Pattern: "", Slot: "b"}})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "route 1")

	_, err = NewResponseRouter([]ResponseRoute{{Pattern: "/x"}})
	require.ErrorIs(t, err, domain.ErrValidation)
}
