// Package remote talks to the public demo catalog API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"inventory-service/internal/domain"
)

// DefaultBaseURL is the public demo catalog.
const DefaultBaseURL = "https://dummyjson.com"

// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
var ErrInvalidResponse = errors.New("remote: invalid response body")

// HTTPError reports a non-2xx response from the catalog API.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote: HTTP error! status: %d (%s)", e.StatusCode, e.URL)
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Timeout        time.Duration
	SimulateWrites bool
}

// Client is the remote source adapter. It does no caching and no retrying.
type Client struct {
	baseURL        string
	http           *http.Client
	simulateWrites bool
	logger         *zap.Logger
}

// NewClient creates a Client. A nil HTTPClient gets a client with opts.Timeout.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:        base,
		http:           hc,
		simulateWrites: opts.SimulateWrites,
		logger:         logger.With(zap.String("component", "remote")),
	}
}

// FetchAllProducts returns the entire remote catalog.
func (c *Client) FetchAllProducts(ctx context.Context) ([]domain.Product, error) {
	return c.fetchProducts(ctx, "/products?limit=0")
}

// FetchCategories returns the remote category list.
func (c *Client) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.getJSON(ctx, "/products/categories", &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// FetchCategoryProducts returns the products of one category.
func (c *Client) FetchCategoryProducts(ctx context.Context, slug string) ([]domain.Product, error) {
	return c.fetchProducts(ctx, "/products/category/"+url.PathEscape(slug))
}

// SearchProducts runs a server-side search.
func (c *Client) SearchProducts(ctx context.Context, q string) ([]domain.Product, error) {
	return c.fetchProducts(ctx, "/products/search?q="+url.QueryEscape(q))
}

// FetchProductsByCategories fetches every slug concurrently and joins the
// results in slug order. The first failure cancels the remaining requests.
func (c *Client) FetchProductsByCategories(ctx context.Context, slugs []string) ([]domain.Product, error) {
	results := make([][]domain.Product, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	for i, slug := range slugs {
		g.Go(func() error {
			products, err := c.FetchCategoryProducts(gctx, slug)
			if err != nil {
				return fmt.Errorf("remote: category %q: %w", slug, err)
			}
			results[i] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined := make([]domain.Product, 0)
	for _, products := range results {
		joined = append(joined, products...)
	}
	return joined, nil
}

// SimulateCreate posts product to the demo API. The demo API does not persist
// anything, so the response is only logged. Errors are logged and swallowed.
func (c *Client) SimulateCreate(ctx context.Context, product domain.Product) {
	if !c.simulateWrites {
		return
	}
	c.simulate(ctx, http.MethodPost, "/products/add", product)
}

// SimulateUpdate puts a single field change to the demo API. Like
// SimulateCreate its outcome never affects local state.
func (c *Client) SimulateUpdate(ctx context.Context, id int64, field domain.EditField, value any) {
	if !c.simulateWrites {
		return
	}
	c.simulate(ctx, http.MethodPut, "/products/"+strconv.FormatInt(id, 10), map[string]any{string(field): value})
}

func (c *Client) simulate(ctx context.Context, method, path string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("simulated write: encode failed", zap.String("path", path), zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("simulated write: build request failed", zap.String("path", path), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("simulated write failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	c.logger.Debug("simulated write response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", data))
}

func (c *Client) fetchProducts(ctx context.Context, path string) ([]domain.Product, error) {
	var page domain.ProductsPage
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	if page.Products == nil {
		page.Products = []domain.Product{}
	}
	return page.Products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("remote: build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: GET %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: target}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	c.logger.Debug("remote fetch", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return nil
}
