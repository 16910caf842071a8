package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
	testhelpers "github.com/aristath/portfolio-analytics/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	db := testhelpers.NewTestDB(t, "portfolio")
	repo := portfolio.NewRepository(db.Conn(), zerolog.Nop())

	router := chi.NewRouter()
	NewHandler(repo, zerolog.Nop()).RegisterRoutes(router)
	return router
}

const createBody = `{
	"name": "Retirement",
	"risk_profile": "conservative",
	"allocations": [
		{"asset_class": "bonds", "asset_name": "Aggregate Bonds", "allocation_percentage": 0.7, "ticker": "AGG"},
		{"asset_class": "stocks", "asset_name": "Total Market", "allocation_percentage": 0.3, "ticker": "VTI"}
	]
}`

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestPortfolioLifecycle(t *testing.T) {
	router := setupRouter(t)

	rec := do(router, http.MethodPost, "/portfolios/", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.RiskProfileConservative, created.Data.RiskProfile)
	require.Len(t, created.Data.Allocations, 2)

	path := "/portfolios/" + jsonID(created.Data.ID)

	rec = do(router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/portfolios/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)

	rec = do(router, http.MethodPut, path, strings.Replace(createBody, "conservative", "moderate", 1))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	router := setupRouter(t)

	rec := do(router, http.MethodPost, "/portfolios/", strings.Replace(createBody, "conservative", "yolo", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/portfolios/", `{"name": "x", "unknown": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/portfolios/zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewRouter()
	assert.NotPanics(t, func() {
		NewHandler(nil, zerolog.Nop()).RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}

func jsonID(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
