package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-service/internal/api"
	"inventory-service/internal/domain"
	"inventory-service/internal/query"
)

func fakeRemote(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.ProductsPage{Products: []domain.Product{
			{ID: 1, Title: "Essence Mascara", Category: "beauty", Price: 9.99, Stock: 5},
			{ID: 2, Title: "Calvin Klein CK One", Category: "fragrances", Brand: "Calvin Klein", Price: 49.99, Stock: 17},
			{ID: 3, Title: "Red Lipstick", Category: "beauty", Price: 12.99, Stock: 0},
		}})
	})
	mux.HandleFunc("/products/category/{slug}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.ProductsPage{Products: []domain.Product{
			{ID: int64(len(r.PathValue("slug"))), Title: r.PathValue("slug") + " item", Category: r.PathValue("slug")},
		}})
	})
	mux.HandleFunc("/products/categories", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Category{{Slug: "beauty", Name: "Beauty"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REMOTE_BASE_URL", baseURL)
	t.Setenv("CATALOG_RETRIES", "0")
	t.Setenv("CATEGORY_RETRIES", "0")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestProductsList_JSON(t *testing.T) {
	srv := fakeRemote(t)

	out, err := runCLI(t, srv.URL, "products", "list", "--search", "  MASCARA ", "-o", "json")
	require.NoError(t, err)

	var resp api.ListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.TotalPages)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, int64(1), resp.Products[0].ID)
}

func TestProductsList_TableSortedAndFiltered(t *testing.T) {
	srv := fakeRemote(t)

	out, err := runCLI(t, srv.URL, "products", "list", "--category", "beauty", "--sort-by", "price", "--sort-order", "desc")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Red Lipstick")
	assert.Contains(t, lines[2], "Essence Mascara")
	assert.NotContains(t, out, "Calvin Klein")
	assert.Contains(t, out, "page 1 of 1, 2 products")
}

func TestProductsList_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := runCLI(t, srv.URL, "products", "list")

	assert.ErrorIs(t, err, query.ErrUpstream)
}

func TestRemoteCategory_PreservesSlugOrder(t *testing.T) {
	srv := fakeRemote(t)

	out, err := runCLI(t, srv.URL, "remote", "category", "fragrances", "beauty", "-o", "json")
	require.NoError(t, err)

	var products []domain.Product
	require.NoError(t, json.Unmarshal([]byte(out), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "fragrances", products[0].Category)
	assert.Equal(t, "beauty", products[1].Category)
}

func TestRemoteCategories_Table(t *testing.T) {
	srv := fakeRemote(t)

	out, err := runCLI(t, srv.URL, "remote", "categories")
	require.NoError(t, err)

	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "beauty")
}

func TestStorageClear(t *testing.T) {
	srv := fakeRemote(t)

	out, err := runCLI(t, srv.URL, "storage", "clear")
	require.NoError(t, err)

	assert.Equal(t, "cleared memory storage\n", out)
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := runCLI(t, "http://127.0.0.1:0", "products", "list", "-o", "yaml")

	assert.ErrorContains(t, err, `invalid output "yaml"`)
}
