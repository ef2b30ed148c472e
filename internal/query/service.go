// Package query orchestrates reads and mutations of the product catalog. It
// caches the remote catalog and the processed pages, retries failed fetches
// and invalidates processed pages after successful local mutations.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"inventory-service/internal/domain"
	"inventory-service/internal/metrics"
	"inventory-service/internal/processor"
	"inventory-service/internal/retry"
)

// Page size bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

const (
	resourceProducts   = "products"
	resourceCategories = "categories"
	cacheResults       = "results"
)

// simulateTimeout bounds a simulated remote write once it is detached from
// the request.
const simulateTimeout = 30 * time.Second

// Source is the remote catalog.
type Source interface {
	FetchAllProducts(ctx context.Context) ([]domain.Product, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)
	SimulateCreate(ctx context.Context, product domain.Product)
	SimulateUpdate(ctx context.Context, id int64, field domain.EditField, value any)
}

// LocalStore persists locally created products and edits.
type LocalStore interface {
	GetLocalProducts(ctx context.Context) []domain.Product
	AddLocalProduct(ctx context.Context, product domain.Product) bool
	GetProductEdits(ctx context.Context) map[int64]domain.EditRecord
	UpdateProductEdit(ctx context.Context, id int64, field domain.EditField, value any) bool
	ClearAllStorage(ctx context.Context) bool
	Ping(ctx context.Context) error
}

// Options tunes caching and retrying.
type Options struct {
	CatalogStaleTime  time.Duration
	CategoryStaleTime time.Duration
	CatalogRetry      retry.Policy
	CategoryRetry     retry.Policy
	ResultCacheSize   int
	ResultCacheTTL    time.Duration

	// OnCatalogStatus, if set, is called after every catalog refresh with
	// whether a catalog can be served.
	OnCatalogStatus func(ready bool)
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the stock freshness windows and retry policies.
func DefaultOptions() Options {
	return Options{
		CatalogStaleTime:  10 * time.Minute,
		CategoryStaleTime: 30 * time.Minute,
		CatalogRetry:      retry.WithRetries(3, time.Second, 30*time.Second),
		CategoryRetry:     retry.WithRetries(2, time.Second, 30*time.Second),
		ResultCacheSize:   256,
		ResultCacheTTL:    10 * time.Minute,
	}
}

// EditResult echoes an accepted inline edit.
type EditResult struct {
	ID    int64            `json:"id"`
	Field domain.EditField `json:"field"`
	Value any              `json:"value"`
}

// Service is the query and mutation orchestrator.
type Service struct {
	source   Source
	local    LocalStore
	opts     Options
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate

	fetches singleflight.Group

	mu         sync.RWMutex // guards catalog and categories
	catalog    entry[[]domain.Product]
	categories entry[[]domain.Category]

	resultsMu  sync.Mutex // orders result writes against invalidation
	results    *expirable.LRU[uint64, domain.Result]
	generation uint64

	writeMu sync.Mutex // serializes creates so generated ids stay unique

	simulated sync.WaitGroup // in-flight simulated remote writes
}

// NewService wires a Service. m may be nil.
func NewService(source Source, local LocalStore, opts Options, m *metrics.Metrics, logger *zap.Logger) *Service {
	def := DefaultOptions()
	if opts.CatalogStaleTime <= 0 {
		opts.CatalogStaleTime = def.CatalogStaleTime
	}
	if opts.CategoryStaleTime <= 0 {
		opts.CategoryStaleTime = def.CategoryStaleTime
	}
	if opts.ResultCacheSize <= 0 {
		opts.ResultCacheSize = def.ResultCacheSize
	}
	if opts.ResultCacheTTL <= 0 {
		opts.ResultCacheTTL = def.ResultCacheTTL
	}
	if opts.CatalogRetry.MaxAttempts <= 0 {
		opts.CatalogRetry = def.CatalogRetry
	}
	if opts.CategoryRetry.MaxAttempts <= 0 {
		opts.CategoryRetry = def.CategoryRetry
	}
	opts.CatalogRetry.ShouldRetry = retryable
	opts.CategoryRetry.ShouldRetry = retryable
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		source:   source,
		local:    local,
		opts:     opts,
		metrics:  m,
		logger:   logger.With(zap.String("component", "query")),
		validate: newValidator(),
		results:  expirable.NewLRU[uint64, domain.Result](opts.ResultCacheSize, nil, opts.ResultCacheTTL),
	}
}

func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// ListProducts returns one processed page. The page is only computed once
// the catalog fetch has succeeded.
func (s *Service) ListProducts(ctx context.Context, filters domain.Filters, page domain.Pagination) (domain.Result, error) {
	filters, page = Normalize(filters, page)
	key := resultKey(filters, page)

	if res, ok := s.results.Get(key); ok {
		s.metrics.CacheHit(cacheResults)
		return res, nil
	}
	s.metrics.CacheMiss(cacheResults)

	remote, err := s.catalogProducts(ctx)
	if err != nil {
		return domain.Result{}, err
	}

	gen := s.currentGeneration()
	local := s.local.GetLocalProducts(ctx)
	edits := s.local.GetProductEdits(ctx)
	res := processor.Process(remote, local, edits, filters, page)
	s.storeResult(gen, key, res)
	return res, nil
}

// Categories returns the remote category list.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	cached := s.categories
	s.mu.RUnlock()
	if cached.fresh(s.opts.Now(), s.opts.CategoryStaleTime) {
		s.metrics.CacheHit(resourceCategories)
		return cached.value, nil
	}
	s.metrics.CacheMiss(resourceCategories)

	v, err := s.shared(ctx, resourceCategories, func(ctx context.Context) (any, error) {
		categories, err := retry.DoWithResult(ctx, s.opts.CategoryRetry, func(ctx context.Context) ([]domain.Category, error) {
			started := time.Now()
			categories, err := s.source.FetchCategories(ctx)
			s.metrics.ObserveFetch(resourceCategories, started, err)
			if err != nil {
				s.logger.Warn("category fetch failed", zap.Error(err))
			}
			return categories, err
		})
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.categories = entry[[]domain.Category]{value: categories, fetchedAt: s.opts.Now(), loaded: true}
		s.mu.Unlock()
		return categories, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if cached.loaded {
			s.metrics.StaleServed(resourceCategories)
			s.logger.Warn("serving stale categories", zap.Error(err))
			return cached.value, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return v.([]domain.Category), nil
}

// catalogProducts returns the remote catalog from cache or a fresh fetch.
// Loading a new catalog purges the processed pages.
func (s *Service) catalogProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	cached := s.catalog
	s.mu.RUnlock()
	if cached.fresh(s.opts.Now(), s.opts.CatalogStaleTime) {
		s.metrics.CacheHit(resourceProducts)
		return cached.value, nil
	}
	s.metrics.CacheMiss(resourceProducts)

	v, err := s.shared(ctx, resourceProducts, func(ctx context.Context) (any, error) {
		products, err := retry.DoWithResult(ctx, s.opts.CatalogRetry, func(ctx context.Context) ([]domain.Product, error) {
			started := time.Now()
			products, err := s.source.FetchAllProducts(ctx)
			s.metrics.ObserveFetch(resourceProducts, started, err)
			if err != nil {
				s.logger.Warn("catalog fetch failed", zap.Error(err))
			}
			return products, err
		})
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.catalog = entry[[]domain.Product]{value: products, fetchedAt: s.opts.Now(), loaded: true}
		s.mu.Unlock()
		s.Invalidate()
		s.logger.Info("catalog loaded", zap.Int("products", len(products)))
		return products, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.reportCatalog(cached.loaded)
		if cached.loaded {
			s.metrics.StaleServed(resourceProducts)
			s.logger.Warn("serving stale catalog", zap.Error(err))
			return cached.value, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	s.reportCatalog(true)
	return v.([]domain.Product), nil
}

// shared runs fetch once for all concurrent callers of the same resource.
// The fetch is detached from any one caller's cancellation so a departing
// caller cannot fail the others; each caller still stops waiting on its own
// context.
func (s *Service) shared(ctx context.Context, resource string, fetch func(context.Context) (any, error)) (any, error) {
	ch := s.fetches.DoChan(resource, func() (any, error) {
		return fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (s *Service) reportCatalog(ready bool) {
	if s.opts.OnCatalogStatus != nil {
		s.opts.OnCatalogStatus(ready)
	}
}

// Ready reports whether a catalog has been loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.loaded
}

// Ping checks the local store backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.local.Ping(ctx)
}

// CreateProduct validates input, builds the product and persists it. The
// processed pages are invalidated only when the write succeeded.
func (s *Service) CreateProduct(ctx context.Context, input domain.ProductInput) (domain.Product, error) {
	input = normalizeInput(input)
	if err := s.validateInput(input); err != nil {
		return domain.Product{}, err
	}

	s.writeMu.Lock()
	existing := make(map[int64]struct{})
	for _, p := range s.local.GetLocalProducts(ctx) {
		existing[p.ID] = struct{}{}
	}
	s.mu.RLock()
	for _, p := range s.catalog.value {
		existing[p.ID] = struct{}{}
	}
	s.mu.RUnlock()

	product := processor.NewProduct(input, existing, s.opts.Now())
	ok := s.local.AddLocalProduct(ctx, product)
	s.writeMu.Unlock()

	s.metrics.Mutation("create", ok)
	if !ok {
		return domain.Product{}, ErrStorageWrite
	}
	s.Invalidate()
	s.logger.Info("product created", zap.Int64("productId", product.ID), zap.String("title", product.Title))

	s.inBackground(ctx, func(ctx context.Context) {
		s.source.SimulateCreate(ctx, product)
	})
	return product, nil
}

// UpdateProductField validates and persists one inline edit. The processed
// pages are invalidated only when the write succeeded.
func (s *Service) UpdateProductField(ctx context.Context, id int64, field domain.EditField, value any) (EditResult, error) {
	if id <= 0 {
		return EditResult{}, newValidationError("id", "Product id must be a positive integer.")
	}
	v, err := editValue(field, value)
	if err != nil {
		return EditResult{}, err
	}

	ok := s.local.UpdateProductEdit(ctx, id, field, v)
	s.metrics.Mutation("edit", ok)
	if !ok {
		return EditResult{}, ErrStorageWrite
	}
	s.Invalidate()
	s.logger.Info("product edited", zap.Int64("productId", id), zap.String("field", string(field)))

	s.inBackground(ctx, func(ctx context.Context) {
		s.source.SimulateUpdate(ctx, id, field, v)
	})
	return EditResult{ID: id, Field: field, Value: v}, nil
}

// inBackground runs a simulated remote write off the request path. The write
// outlives the caller's cancellation but not simulateTimeout.
func (s *Service) inBackground(ctx context.Context, write func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), simulateTimeout)
	s.simulated.Add(1)
	go func() {
		defer s.simulated.Done()
		defer cancel()
		write(ctx)
	}()
}

// Wait blocks until every background simulated write has returned.
func (s *Service) Wait() {
	s.simulated.Wait()
}

// ClearStorage removes every local product and edit.
func (s *Service) ClearStorage(ctx context.Context) error {
	ok := s.local.ClearAllStorage(ctx)
	s.metrics.Mutation("clear", ok)
	if !ok {
		return ErrStorageWrite
	}
	s.Invalidate()
	return nil
}

// Invalidate drops every processed page. Pages computed before the call are
// not written back.
func (s *Service) Invalidate() {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	s.generation++
	s.results.Purge()
}

func (s *Service) currentGeneration() uint64 {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	return s.generation
}

func (s *Service) storeResult(gen, key uint64, res domain.Result) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	if gen != s.generation {
		return
	}
	s.results.Add(key, res)
}
