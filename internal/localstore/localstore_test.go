package localstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"inventory-service/internal/domain"
	"inventory-service/internal/store"
)

func newTestStore(t *testing.T) (*Store, *store.MemoryStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	kv := store.NewMemoryStore()
	return New(kv, zap.New(core)), kv, logs
}

// readFailingKV fails reads while letting writes through.
type readFailingKV struct {
	*store.MemoryStore
	sets int
}

func (k *readFailingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("read failed")
}

func (k *readFailingKV) Set(ctx context.Context, key, value string) error {
	k.sets++
	return k.MemoryStore.Set(ctx, key, value)
}

func TestGetLocalProducts_Empty(t *testing.T) {
	s, _, _ := newTestStore(t)

	products := s.GetLocalProducts(context.Background())

	require.NotNil(t, products)
	assert.Empty(t, products)
}

func TestGetLocalProducts_CorruptData(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"invalid json": "{not json",
		"not an array": `{"id":1}`,
		"null":         "null",
	} {
		t.Run(name, func(t *testing.T) {
			s, kv, _ := newTestStore(t)
			require.NoError(t, kv.Set(ctx, KeyLocalProducts, raw))

			assert.Empty(t, s.GetLocalProducts(ctx))
		})
	}
}

func TestGetLocalProducts_DropsMalformedElements(t *testing.T) {
	ctx := context.Background()
	s, kv, logs := newTestStore(t)
	require.NoError(t, kv.Set(ctx, KeyLocalProducts, `[{"id":5,"title":"Lamp"},"junk",{"title":"no id"},{"id":"7"}]`))

	products := s.GetLocalProducts(ctx)

	require.Len(t, products, 1)
	assert.Equal(t, int64(5), products[0].ID)
	assert.Equal(t, "Lamp", products[0].Title)
	assert.Equal(t, 3, logs.FilterMessage("dropping malformed local product").Len())
}

func TestAddLocalProduct_AppendsInOrder(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	require.True(t, s.AddLocalProduct(ctx, domain.Product{ID: 10, Title: "First"}))
	require.True(t, s.AddLocalProduct(ctx, domain.Product{ID: 11, Title: "Second"}))

	products := s.GetLocalProducts(ctx)
	require.Len(t, products, 2)
	assert.Equal(t, "First", products[0].Title)
	assert.Equal(t, "Second", products[1].Title)
}

func TestAddLocalProduct_WriteFailure(t *testing.T) {
	ctx := context.Background()
	s, kv, logs := newTestStore(t)
	require.True(t, s.AddLocalProduct(ctx, domain.Product{ID: 1, Title: "Kept"}))

	kv.WithQuota(20)
	ok := s.AddLocalProduct(ctx, domain.Product{ID: 2, Title: "Too big to fit in the quota"})

	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("error writing to storage").Len())
	kv.WithQuota(0)
	products := s.GetLocalProducts(ctx)
	require.Len(t, products, 1)
	assert.Equal(t, "Kept", products[0].Title)
}

func TestAddLocalProduct_ReadFailureDoesNotOverwrite(t *testing.T) {
	kv := &readFailingKV{MemoryStore: store.NewMemoryStore()}
	s := New(kv, zap.NewNop())

	ok := s.AddLocalProduct(context.Background(), domain.Product{ID: 1})

	assert.False(t, ok)
	assert.Zero(t, kv.sets, "Nothing may be written when existing data could not be read")
}

func TestGetProductEdits_DropsMalformedEntriesPerKey(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t)
	raw := `{
		"1": {"stock": 3},
		"abc": {"title": "bad key"},
		"2": "not an object",
		"3": {"price": "cheap"},
		"4": {"title": "Renamed", "price": "bad"},
		"5": {"stock": 2.5}
	}`
	require.NoError(t, kv.Set(ctx, KeyProductEdits, raw))

	edits := s.GetProductEdits(ctx)

	require.Len(t, edits, 2)
	require.NotNil(t, edits[1].Stock)
	assert.Equal(t, 3, *edits[1].Stock)
	require.NotNil(t, edits[4].Title)
	assert.Equal(t, "Renamed", *edits[4].Title)
	assert.Nil(t, edits[4].Price)
}

func TestGetProductEdits_NonObject(t *testing.T) {
	ctx := context.Background()
	s, kv, logs := newTestStore(t)
	require.NoError(t, kv.Set(ctx, KeyProductEdits, `[1,2,3]`))

	assert.Empty(t, s.GetProductEdits(ctx))
	assert.Equal(t, 1, logs.FilterMessage("invalid productEdits data structure, returning empty map").Len())
}

func TestUpdateProductEdit_MergesFields(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	require.True(t, s.UpdateProductEdit(ctx, 1, domain.EditFieldTitle, "New title"))
	require.True(t, s.UpdateProductEdit(ctx, 1, domain.EditFieldPrice, 12.5))
	require.True(t, s.UpdateProductEdit(ctx, 1, domain.EditFieldStock, 4))
	require.True(t, s.UpdateProductEdit(ctx, 1, domain.EditFieldStock, int64(6)), "Last write wins")

	edits := s.GetProductEdits(ctx)
	rec := edits[1]
	require.NotNil(t, rec.Title)
	require.NotNil(t, rec.Price)
	require.NotNil(t, rec.Stock)
	assert.Equal(t, "New title", *rec.Title)
	assert.Equal(t, 12.5, *rec.Price)
	assert.Equal(t, 6, *rec.Stock)
}

func TestUpdateProductEdit_RejectsWrongType(t *testing.T) {
	ctx := context.Background()
	s, _, logs := newTestStore(t)
	require.True(t, s.UpdateProductEdit(ctx, 1, domain.EditFieldPrice, 10.0))

	cases := []struct {
		field domain.EditField
		value any
	}{
		{domain.EditFieldPrice, "not-a-number"},
		{domain.EditFieldTitle, 42},
		{domain.EditFieldStock, 2.5},
		{domain.EditFieldStock, "3"},
		{domain.EditField("name"), "legacy"},
	}
	for _, tc := range cases {
		assert.False(t, s.UpdateProductEdit(ctx, 1, tc.field, tc.value), "field %s value %v", tc.field, tc.value)
	}

	edits := s.GetProductEdits(ctx)
	require.Len(t, edits, 1)
	require.NotNil(t, edits[1].Price)
	assert.Equal(t, 10.0, *edits[1].Price, "Prior edits stay untouched")
	assert.Nil(t, edits[1].Title)
	assert.Nil(t, edits[1].Stock)
	assert.GreaterOrEqual(t, logs.Len(), len(cases))
}

func TestUpdateProductEdit_ReadFailureDoesNotOverwrite(t *testing.T) {
	kv := &readFailingKV{MemoryStore: store.NewMemoryStore()}
	s := New(kv, zap.NewNop())

	ok := s.UpdateProductEdit(context.Background(), 1, domain.EditFieldStock, 3)

	assert.False(t, ok)
	assert.Zero(t, kv.sets)
}

func TestClearAllStorage(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t)
	require.True(t, s.AddLocalProduct(ctx, domain.Product{ID: 1}))
	require.True(t, s.UpdateProductEdit(ctx, 1, domain.EditFieldStock, 1))

	require.True(t, s.ClearAllStorage(ctx))

	assert.Empty(t, s.GetLocalProducts(ctx))
	assert.Empty(t, s.GetProductEdits(ctx))
	_, found, err := kv.Get(ctx, KeyProductEdits)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClearAllStorage_Failure(t *testing.T) {
	s, kv, _ := newTestStore(t)
	kv.FailWith(errors.New("storage unavailable"))

	assert.False(t, s.ClearAllStorage(context.Background()))
}
