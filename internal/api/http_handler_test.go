package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inventory-service/internal/domain"
	"inventory-service/internal/metrics"
	"inventory-service/internal/query"
)

// MockCatalogService is a mock implementation of CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListProducts(ctx context.Context, filters domain.Filters, page domain.Pagination) (domain.Result, error) {
	args := m.Called(ctx, filters, page)
	return args.Get(0).(domain.Result), args.Error(1)
}

func (m *MockCatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, input domain.ProductInput) (domain.Product, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockCatalogService) UpdateProductField(ctx context.Context, id int64, field domain.EditField, value any) (query.EditResult, error) {
	args := m.Called(ctx, id, field, value)
	return args.Get(0).(query.EditResult), args.Error(1)
}

func (m *MockCatalogService) ClearStorage(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCatalogService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCatalogService) Ready() bool {
	return m.Called().Bool(0)
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, svc CatalogService) *httptest.Server {
	t.Helper()
	handler := NewHTTPHandler(svc, metrics.New(), zap.NewNop(), "/api/v1")
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestHTTPHandler_ListProducts_Success(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	wantFilters := domain.Filters{
		Search:             "phone",
		SelectedCategories: []string{"smartphones", "laptops", "tablets"},
		SortBy:             domain.SortByPrice,
		SortOrder:          domain.SortDesc,
	}
	wantPage := domain.Pagination{Page: 2, Limit: 5}
	mockSvc.On("ListProducts", mock.Anything, wantFilters, wantPage).Return(domain.Result{
		Products: []domain.Product{{ID: 7, Title: "Phone"}},
		Total:    6,
		Skip:     5,
		Limit:    5,
	}, nil).Once()

	res, err := http.Get(server.URL + "/api/v1/products?search=phone&category=smartphones&categories=laptops,tablets&sortBy=price&sortOrder=desc&page=2&limit=5")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	var body ListResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Len(t, body.Products, 1)
	assert.Equal(t, int64(7), body.Products[0].ID)
	assert.Equal(t, 6, body.Total)
	assert.Equal(t, 5, body.Skip)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 2, body.TotalPages)

	mockSvc.AssertExpectations(t)
}

func TestHTTPHandler_ListProducts_InvalidParamsFallBack(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	mockSvc.On("ListProducts", mock.Anything, domain.Filters{}, domain.Pagination{Page: 1, Limit: 10}).
		Return(domain.Result{Limit: 10}, nil).Once()

	res, err := http.Get(server.URL + "/api/v1/products?sortBy=rating&sortOrder=sideways&page=abc&limit=-4")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"products":[]`)
	mockSvc.AssertExpectations(t)
}

func TestParseListParams(t *testing.T) {
	filters, page := ParseListParams(map[string][]string{
		"sortBy": {"title"},
		"limit":  {"1000"},
	})

	assert.Equal(t, domain.SortByTitle, filters.SortBy)
	assert.Equal(t, domain.SortAsc, filters.SortOrder, "sortBy without sortOrder defaults to asc")
	assert.Equal(t, domain.Pagination{Page: 1, Limit: query.MaxLimit}, page)
}

func TestParseListParams_HugePageStaysPastTheEnd(t *testing.T) {
	_, page := ParseListParams(map[string][]string{
		"page":  {"92233720368547760"},
		"limit": {"100"},
	})

	assert.Equal(t, 92233720368547760, page.Page)
	assert.Equal(t, math.MaxInt, page.Skip())
}

func TestHTTPHandler_ListProducts_UpstreamFailure(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	mockSvc.On("ListProducts", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Result{}, fmt.Errorf("%w: %w", query.ErrUpstream, errors.New("status: 503"))).Once()

	res, err := http.Get(server.URL + "/api/v1/products")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&errResp))
	assert.Equal(t, "Remote catalog unavailable", errResp.Error)
}

func TestHTTPHandler_ListCategories(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	mockSvc.On("Categories", mock.Anything).Return([]domain.Category{{Slug: "beauty", Name: "Beauty"}}, nil).Once()

	res, err := http.Get(server.URL + "/api/v1/products/categories")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	var got []domain.Category
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "beauty", got[0].Slug)
	mockSvc.AssertExpectations(t)
}

func TestHTTPHandler_CreateProduct_Success(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	input := domain.ProductInput{
		Title:       "Desk Lamp",
		Description: "Warm light for late work",
		Category:    "furniture",
		Price:       30,
		Stock:       2,
	}
	created := domain.Product{ID: 1717000000123, Title: input.Title, Brand: "Custom", AvailabilityStatus: domain.StatusInStock}
	mockSvc.On("CreateProduct", mock.Anything, input).Return(created, nil).Once()

	res := doJSON(t, http.MethodPost, server.URL+"/api/v1/products", input)

	require.Equal(t, http.StatusCreated, res.StatusCode)
	var got domain.Product
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Custom", got.Brand)
	mockSvc.AssertExpectations(t)
}

func TestHTTPHandler_CreateProduct_ValidationFailure(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	verr := &query.ValidationError{Fields: map[string]string{"title": "Product name must be at least 3 characters"}}
	mockSvc.On("CreateProduct", mock.Anything, mock.AnythingOfType("domain.ProductInput")).
		Return(domain.Product{}, verr).Once()

	res := doJSON(t, http.MethodPost, server.URL+"/api/v1/products", domain.ProductInput{Title: "ab"})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&errResp))
	assert.Equal(t, "Validation failed", errResp.Error)
	assert.Equal(t, verr.Fields, errResp.Details)
}

func TestHTTPHandler_CreateProduct_InvalidPayload(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	res, err := http.Post(server.URL+"/api/v1/products", "application/json", bytes.NewBufferString(`{"title":`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	mockSvc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestHTTPHandler_CreateProduct_StorageFailure(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	mockSvc.On("CreateProduct", mock.Anything, mock.Anything).Return(domain.Product{}, query.ErrStorageWrite).Once()

	res := doJSON(t, http.MethodPost, server.URL+"/api/v1/products", domain.ProductInput{Title: "Chair"})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&errResp))
	assert.Equal(t, "Failed to save to storage", errResp.Error)
}

func TestHTTPHandler_UpdateProductField_Success(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	// JSON numbers decode to float64.
	mockSvc.On("UpdateProductField", mock.Anything, int64(3), domain.EditFieldStock, float64(0)).
		Return(query.EditResult{ID: 3, Field: domain.EditFieldStock, Value: 0}, nil).Once()

	res := doJSON(t, http.MethodPatch, server.URL+"/api/v1/products/3", ProductEditInput{Field: "stock", Value: 0})

	require.Equal(t, http.StatusOK, res.StatusCode)
	var got map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, float64(3), got["id"])
	assert.Equal(t, "stock", got["field"])
	assert.Equal(t, float64(0), got["value"])
	mockSvc.AssertExpectations(t)
}

func TestHTTPHandler_UpdateProductField_NameAlias(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	mockSvc.On("UpdateProductField", mock.Anything, int64(3), domain.EditFieldTitle, "Renamed").
		Return(query.EditResult{ID: 3, Field: domain.EditFieldTitle, Value: "Renamed"}, nil).Once()

	res := doJSON(t, http.MethodPatch, server.URL+"/api/v1/products/3", ProductEditInput{Field: "name", Value: "Renamed"})

	assert.Equal(t, http.StatusOK, res.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestHTTPHandler_UpdateProductField_BadRequests(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	cases := map[string]struct {
		path string
		body any
	}{
		"bad id":        {"/api/v1/products/abc", ProductEditInput{Field: "stock", Value: 1}},
		"negative id":   {"/api/v1/products/-1", ProductEditInput{Field: "stock", Value: 1}},
		"missing field": {"/api/v1/products/1", map[string]any{"value": 1}},
		"unknown field": {"/api/v1/products/1", ProductEditInput{Field: "colour", Value: "red"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := doJSON(t, http.MethodPatch, server.URL+tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
	mockSvc.AssertNotCalled(t, "UpdateProductField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHTTPHandler_ClearStorage(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	mockSvc.On("ClearStorage", mock.Anything).Return(nil).Once()
	res := doJSON(t, http.MethodDelete, server.URL+"/api/v1/storage", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	mockSvc.On("ClearStorage", mock.Anything).Return(query.ErrStorageWrite).Once()
	res = doJSON(t, http.MethodDelete, server.URL+"/api/v1/storage", nil)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	mockSvc.AssertExpectations(t)
}

func TestHTTPHandler_Healthz(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)

	mockSvc.On("Ready").Return(true)
	mockSvc.On("Ping", mock.Anything).Return(nil).Once()
	mockSvc.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

	res, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&health))
	assert.Equal(t, HealthResponse{Status: "ok", Storage: "ok", Catalog: "loaded"}, health)

	res2, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res2.StatusCode)
}

func TestHTTPHandler_MetricsEndpoint(t *testing.T) {
	mockSvc := new(MockCatalogService)
	server := setupTestChiServer(t, mockSvc)
	mockSvc.On("Categories", mock.Anything).Return([]domain.Category{}, nil).Once()

	res, err := http.Get(server.URL + "/api/v1/products/categories")
	require.NoError(t, err)
	res.Body.Close()

	res, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `inventory_http_requests_total{code="200",method="GET",route="/api/v1/products/categories"} 1`)
}
