package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"inventory-service/internal/domain"
	"inventory-service/internal/metrics"
	"inventory-service/internal/query"
)

// CatalogService is what the handlers need from the query layer.
type CatalogService interface {
	ListProducts(ctx context.Context, filters domain.Filters, page domain.Pagination) (domain.Result, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	CreateProduct(ctx context.Context, input domain.ProductInput) (domain.Product, error)
	UpdateProductField(ctx context.Context, id int64, field domain.EditField, value any) (query.EditResult, error)
	ClearStorage(ctx context.Context) error
	Ping(ctx context.Context) error
	Ready() bool
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	service  CatalogService
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate
	basePath string
}

// NewHTTPHandler creates a new HTTPHandler with dependencies. m may be nil.
func NewHTTPHandler(service CatalogService, m *metrics.Metrics, logger *zap.Logger, basePath string) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if basePath == "" {
		basePath = "/api/v1"
	}
	return &HTTPHandler{
		service:  service,
		metrics:  m,
		logger:   logger.With(zap.String("component", "http")),
		validate: validator.New(),
		basePath: strings.TrimRight(basePath, "/"),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

// statusClientClosedRequest is the nginx convention for a caller that hung up.
const statusClientClosedRequest = 499

// respondWithServiceError maps query errors onto status codes.
func (h *HTTPHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *query.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: verr.Fields})
		return
	case errors.Is(err, query.ErrStorageWrite):
		respondWithError(w, http.StatusInternalServerError, "Failed to save to storage")
	case errors.Is(err, query.ErrUpstream):
		respondWithError(w, http.StatusBadGateway, "Remote catalog unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "Request timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		w.WriteHeader(statusClientClosedRequest)
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
	h.logger.Error(action+" failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
}

// --- Product Handlers ---

// ListResponse is one page of the processed catalog.
type ListResponse struct {
	Products   []domain.Product `json:"products"`
	Total      int              `json:"total"`
	Skip       int              `json:"skip"`
	Limit      int              `json:"limit"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// ParseListParams reads filters and pagination from the query string.
// Invalid values fall back to unset or default values.
func ParseListParams(q map[string][]string) (domain.Filters, domain.Pagination) {
	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	limit, err := strconv.Atoi(get("limit"))
	if err != nil || limit <= 0 {
		limit = query.DefaultLimit
	}
	if limit > query.MaxLimit {
		limit = query.MaxLimit
	}
	page, err := strconv.Atoi(get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	var categories []string
	for _, key := range []string{"category", "categories"} {
		for _, raw := range q[key] {
			for _, c := range strings.Split(raw, ",") {
				if c = strings.TrimSpace(c); c != "" {
					categories = append(categories, c)
				}
			}
		}
	}

	filters := domain.Filters{
		Search:             get("search"),
		SelectedCategories: categories,
		SortBy:             domain.ParseSortField(get("sortBy")),
		SortOrder:          domain.ParseSortOrder(get("sortOrder")),
	}
	if filters.SortBy == domain.SortByNone {
		filters.SortOrder = ""
	} else if filters.SortOrder == "" {
		filters.SortOrder = domain.SortAsc
	}
	return filters, domain.Pagination{Page: page, Limit: limit}
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filters, page := ParseListParams(r.URL.Query())

	res, err := h.service.ListProducts(r.Context(), filters, page)
	if err != nil {
		h.respondWithServiceError(w, r, err, "list products")
		return
	}

	products := res.Products
	if products == nil {
		products = []domain.Product{}
	}
	respondWithJSON(w, http.StatusOK, ListResponse{
		Products:   products,
		Total:      res.Total,
		Skip:       res.Skip,
		Limit:      res.Limit,
		Page:       page.Page,
		TotalPages: res.TotalPages(),
	})
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err, "list categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var input domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		h.respondWithServiceError(w, r, err, "create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, product)
}

// ProductEditInput defines the expected input for an inline edit.
type ProductEditInput struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

func (h *HTTPHandler) UpdateProductField(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "productId")
	productID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	defer r.Body.Close()
	var input ProductEditInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	field, ok := domain.ParseEditField(input.Field)
	if !ok {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"field": "Field must be one of title, price, stock."},
		})
		return
	}

	result, err := h.service.UpdateProductField(r.Context(), productID, field, input.Value)
	if err != nil {
		h.respondWithServiceError(w, r, err, "update product")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) ClearStorage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearStorage(r.Context()); err != nil {
		h.respondWithServiceError(w, r, err, "clear storage")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// HealthResponse reports liveness and dependency state.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Catalog string `json:"catalog"`
}

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Storage: "ok", Catalog: "pending"}
	if h.service.Ready() {
		resp.Catalog = "loaded"
	}
	code := http.StatusOK
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("storage ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, resp)
}

// --- Middleware ---

// Instrument records request counts and latency per matched route.
func (h *HTTPHandler) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		h.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		h.logger.Debug("request served",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.Instrument)

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route(h.basePath, func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)                    // GET /api/v1/products
			r.Post("/", h.CreateProduct)                  // POST /api/v1/products
			r.Get("/categories", h.ListCategories)        // GET /api/v1/products/categories
			r.Patch("/{productId}", h.UpdateProductField) // PATCH /api/v1/products/{productId}
		})
		r.Delete("/storage", h.ClearStorage) // DELETE /api/v1/storage
	})
}
