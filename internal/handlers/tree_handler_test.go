package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/streettrees/internal/catalog"
	apierrors "github.com/stwalsh4118/streettrees/internal/errors"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/models"
	"github.com/stwalsh4118/streettrees/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockStatsService is a mock implementation of services.StatsService.
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) SpeciesStats(ctx context.Context, query string) (*services.SpeciesStats, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SpeciesStats), args.Error(1)
}

func (m *MockStatsService) CountInBorough(ctx context.Context, species, borough string) (*services.PopularityRow, error) {
	args := m.Called(ctx, species, borough)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PopularityRow), args.Error(1)
}

func (m *MockStatsService) SpeciesNames(ctx context.Context) []string {
	return m.Called(ctx).Get(0).([]string)
}

func (m *MockStatsService) BoroughTotals(ctx context.Context) []services.BoroughTotal {
	return m.Called(ctx).Get(0).([]services.BoroughTotal)
}

func (m *MockStatsService) CatalogSize(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

func (m *MockStatsService) Trees(ctx context.Context, query string, limit int) (*services.TreeListing, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TreeListing), args.Error(1)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	for _, s := range []struct {
		id      int
		species string
		borough string
	}{
		{1, "London planetree", "Brooklyn"},
		{2, "pin oak", "Queens"},
		{3, "Pin Oak", "Queens"},
		{4, "honeylocust", "Manhattan"},
		{5, "swamp white oak", "Bronx"},
	} {
		tree, err := models.NewTreeRecord(s.id, 11, "Alive", "Good", s.species, 11101, s.borough, 0, 0)
		require.NoError(t, err)
		c.Add(tree)
	}
	return c
}

// setupTreeRouter serves the full router with svc published, or with an
// empty gate when svc is nil.
func setupTreeRouter(svc services.StatsService) *gin.Engine {
	gate := &services.StatsGate{}
	if svc != nil {
		gate.Publish(svc)
	}
	return NewRouter(RouterDeps{
		Log:         logger.Nop(),
		CORSOrigins: []string{"http://localhost:3000"},
		Health:      NewHealthHandler(gate, nil, clockwork.NewFakeClock(), "test", "csv"),
		Trees:       NewTreeHandler(gate),
	})
}

func get(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSpecies_Success(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	w := get(router, "/api/v1/species?q=OAK")
	require.Equal(t, http.StatusOK, w.Code)

	stats := decode[services.SpeciesStats](t, w)
	assert.Equal(t, "OAK", stats.Query)
	assert.Equal(t, []string{"pin oak", "swamp white oak"}, stats.Matches)
	require.Len(t, stats.Popularity, 6)
	assert.Equal(t, services.PopularityRow{Area: "NYC", Count: 3, Total: 5, Percent: 60}, stats.Popularity[0])
	assert.Equal(t, services.PopularityRow{Area: "Queens", Count: 2, Total: 2, Percent: 100}, stats.Popularity[4])
	assert.Equal(t, services.PopularityRow{Area: "Staten Island"}, stats.Popularity[5])
}

func TestSpecies_NoMatchesIsNotAnError(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	w := get(router, "/api/v1/species?q=baobab")
	require.Equal(t, http.StatusOK, w.Code)

	stats := decode[services.SpeciesStats](t, w)
	assert.Empty(t, stats.Matches)
	assert.Empty(t, stats.Popularity)
	assert.JSONEq(t, `{"query":"baobab","matches":[],"popularity":[]}`, w.Body.String())
}

func TestSpecies_Validation(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	tests := []struct {
		name     string
		target   string
		wantCode string
		field    string
	}{
		{name: "missing q", target: "/api/v1/species", wantCode: apierrors.ErrValidation, field: "q"},
		{name: "q too long", target: "/api/v1/species?q=" + strings.Repeat("a", 101), wantCode: apierrors.ErrValidation, field: "q"},
		{name: "blank q", target: "/api/v1/species?q=%20%20", wantCode: apierrors.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, tt.target)
			require.Equal(t, http.StatusBadRequest, w.Code)

			resp := decode[apierrors.ErrorResponse](t, w)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
			if tt.field != "" {
				assert.Contains(t, resp.Error.Details, tt.field)
			}
		})
	}
}

func TestSpecies_ServiceFailure(t *testing.T) {
	svc := new(MockStatsService)
	svc.On("SpeciesStats", mock.Anything, "oak").Return(nil, errors.New("boom"))
	router := setupTreeRouter(svc)

	w := get(router, "/api/v1/species?q=oak")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[apierrors.ErrorResponse](t, w)
	assert.Equal(t, apierrors.ErrInternalServer, resp.Error.Code)
	assert.NotContains(t, w.Body.String(), "boom")
	svc.AssertExpectations(t)
}

func TestCatalogNotReady(t *testing.T) {
	router := setupTreeRouter(nil)

	for _, target := range []string{
		"/api/v1/species?q=oak",
		"/api/v1/species/names",
		"/api/v1/boroughs",
		"/api/v1/boroughs/Queens/species/pin%20oak",
		"/api/v1/trees?q=oak",
	} {
		w := get(router, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
		resp := decode[apierrors.ErrorResponse](t, w)
		assert.Equal(t, apierrors.ErrCatalogNotReady, resp.Error.Code, target)
	}
}

func TestSpeciesNames(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	w := get(router, "/api/v1/species/names")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[SpeciesNamesResponse](t, w)
	assert.Equal(t, []string{"London planetree", "pin oak", "honeylocust", "swamp white oak"}, resp.Species)
	assert.Equal(t, 4, resp.Count)
}

func TestBoroughs(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	w := get(router, "/api/v1/boroughs")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[BoroughsResponse](t, w)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, []services.BoroughTotal{
		{Borough: "Manhattan", Count: 1},
		{Borough: "Bronx", Count: 1},
		{Borough: "Brooklyn", Count: 1},
		{Borough: "Queens", Count: 2},
		{Borough: "Staten Island", Count: 0},
	}, resp.Boroughs)
}

func TestBoroughSpecies(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	t.Run("counts exact species ignoring case", func(t *testing.T) {
		w := get(router, "/api/v1/boroughs/queens/species/PIN%20OAK")
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[BoroughSpeciesResponse](t, w)
		assert.Equal(t, BoroughSpeciesResponse{Species: "PIN OAK", Borough: "Queens", Count: 2, Total: 2, Percent: 100}, resp)
	})

	t.Run("empty borough has zero percent", func(t *testing.T) {
		w := get(router, "/api/v1/boroughs/Staten%20Island/species/pin%20oak")
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[BoroughSpeciesResponse](t, w)
		assert.Zero(t, resp.Total)
		assert.Zero(t, resp.Percent)
	})

	t.Run("unknown borough fails validation", func(t *testing.T) {
		w := get(router, "/api/v1/boroughs/Hoboken/species/pin%20oak")
		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decode[apierrors.ErrorResponse](t, w)
		assert.Equal(t, apierrors.ErrValidation, resp.Error.Code)
		assert.Contains(t, resp.Error.Details, "borough")
	})
}

func TestTrees(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	w := get(router, "/api/v1/trees?q=OAK")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[TreesResponse](t, w)
	assert.Equal(t, "OAK", resp.Query)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Trees, 3)
	assert.Equal(t, TreeResponse{
		ID:       5,
		Diameter: 11,
		Status:   "Alive",
		Health:   "Good",
		Species:  "swamp white oak",
		Borough:  "Bronx",
		Zip:      11101,
	}, resp.Trees[0])
	assert.Equal(t, 3, resp.Trees[1].ID)
	assert.Equal(t, 2, resp.Trees[2].ID)

	w = get(router, "/api/v1/trees?q=oak&limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[TreesResponse](t, w)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Count)

	w = get(router, "/api/v1/trees?q=baobab")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[TreesResponse](t, w)
	assert.Zero(t, resp.Total)
	assert.NotNil(t, resp.Trees)
}

func TestTrees_DefaultLimit(t *testing.T) {
	svc := new(MockStatsService)
	svc.On("Trees", mock.Anything, "oak", DefaultTreeLimit).
		Return(&services.TreeListing{Query: "oak", Trees: []*models.TreeRecord{}}, nil)
	router := setupTreeRouter(svc)

	w := get(router, "/api/v1/trees?q=oak")
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestTrees_Validation(t *testing.T) {
	router := setupTreeRouter(services.NewStatsService(testCatalog(t), logger.Nop(), nil, 0))

	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{name: "missing q", target: "/api/v1/trees", wantCode: apierrors.ErrValidation},
		{name: "limit too large", target: "/api/v1/trees?q=oak&limit=1001", wantCode: apierrors.ErrValidation},
		{name: "limit not a number", target: "/api/v1/trees?q=oak&limit=ten", wantCode: apierrors.ErrBadRequest},
		{name: "blank q", target: "/api/v1/trees?q=%20", wantCode: apierrors.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, tt.target)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode[apierrors.ErrorResponse](t, w).Error.Code)
		})
	}
}
