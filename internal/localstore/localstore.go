// Package localstore keeps user-created products and field edits to remote
// products in a key-value store. Every operation fails soft: reads fall back
// to empty values and writes report success as a bool, logging the cause.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"inventory-service/internal/domain"
	"inventory-service/internal/store"
)

// Persisted keys.
const (
	KeyLocalProducts = "localProducts"
	KeyProductEdits  = "productEdits"
)

// Store is the persistent local store.
type Store struct {
	kv     store.KVStore
	logger *zap.Logger
	mu     sync.Mutex // serializes read-modify-write sequences
}

// New creates a Store over kv.
func New(kv store.KVStore, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger.With(zap.String("component", "localstore"))}
}

// safeGet reads key. readable is false only when the backend failed.
func (s *Store) safeGet(ctx context.Context, key string) (value string, found, readable bool) {
	v, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("error reading from storage", zap.String("key", key), zap.Error(err))
		return "", false, false
	}
	return v, found, true
}

func (s *Store) safeSet(ctx context.Context, key, value string) bool {
	if err := s.kv.Set(ctx, key, value); err != nil {
		s.logger.Warn("error writing to storage", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// GetLocalProducts returns the locally created products. Missing or corrupt
// data yields an empty slice; elements that do not decode to a product with a
// positive id are dropped.
func (s *Store) GetLocalProducts(ctx context.Context) []domain.Product {
	products, _ := s.loadLocalProducts(ctx)
	return products
}

func (s *Store) loadLocalProducts(ctx context.Context) ([]domain.Product, bool) {
	raw, found, readable := s.safeGet(ctx, KeyLocalProducts)
	if !readable {
		return []domain.Product{}, false
	}
	return s.decodeLocalProducts(raw, found), true
}

func (s *Store) decodeLocalProducts(raw string, found bool) []domain.Product {
	if !found || raw == "" {
		return []domain.Product{}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		s.logger.Warn("invalid localProducts data structure, returning empty list", zap.Error(err))
		return []domain.Product{}
	}

	products := make([]domain.Product, 0, len(elems))
	for i, elem := range elems {
		var p domain.Product
		if err := json.Unmarshal(elem, &p); err != nil || p.ID <= 0 {
			s.logger.Warn("dropping malformed local product", zap.Int("index", i), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products
}

// SetLocalProducts replaces the persisted local product list.
func (s *Store) SetLocalProducts(ctx context.Context, products []domain.Product) bool {
	if products == nil {
		products = []domain.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		s.logger.Warn("error serializing products", zap.Error(err))
		return false
	}
	return s.safeSet(ctx, KeyLocalProducts, string(data))
}

// AddLocalProduct appends product to the persisted list.
func (s *Store) AddLocalProduct(ctx context.Context, product domain.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.loadLocalProducts(ctx)
	if !ok {
		return false
	}
	return s.SetLocalProducts(ctx, append(existing, product))
}

// GetProductEdits returns the persisted edit records keyed by product id.
// A non-object payload yields an empty map. Entries with a non-numeric key or
// a non-object value are dropped, as are fields of the wrong JSON type.
func (s *Store) GetProductEdits(ctx context.Context) map[int64]domain.EditRecord {
	edits, _ := s.loadProductEdits(ctx)
	return edits
}

func (s *Store) loadProductEdits(ctx context.Context) (map[int64]domain.EditRecord, bool) {
	raw, found, readable := s.safeGet(ctx, KeyProductEdits)
	if !readable {
		return make(map[int64]domain.EditRecord), false
	}
	return s.decodeProductEdits(raw, found), true
}

func (s *Store) decodeProductEdits(raw string, found bool) map[int64]domain.EditRecord {
	edits := make(map[int64]domain.EditRecord)
	if !found || raw == "" {
		return edits
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || entries == nil {
		s.logger.Warn("invalid productEdits data structure, returning empty map", zap.Error(err))
		return edits
	}

	for key, value := range entries {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.logger.Warn("dropping edit with invalid product id", zap.String("key", key))
			continue
		}
		rec, ok := decodeEditRecord(value)
		if !ok || rec.IsEmpty() {
			s.logger.Warn("dropping malformed edit record", zap.Int64("productId", id))
			continue
		}
		edits[id] = rec
	}
	return edits
}

// decodeEditRecord keeps only the fields whose JSON type matches the field.
func decodeEditRecord(raw json.RawMessage) (domain.EditRecord, bool) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return domain.EditRecord{}, false
	}

	var rec domain.EditRecord
	if v, ok := fields[string(domain.EditFieldTitle)].(string); ok {
		rec.Title = &v
	}
	if v, ok := fields[string(domain.EditFieldPrice)].(float64); ok {
		rec.Price = &v
	}
	if v, ok := fields[string(domain.EditFieldStock)].(float64); ok {
		if n, ok := integral(v); ok {
			rec.Stock = &n
		}
	}
	return rec, true
}

// SetProductEdits replaces all persisted edit records.
func (s *Store) SetProductEdits(ctx context.Context, edits map[int64]domain.EditRecord) bool {
	out := make(map[string]domain.EditRecord, len(edits))
	for id, rec := range edits {
		out[strconv.FormatInt(id, 10)] = rec
	}
	data, err := json.Marshal(out)
	if err != nil {
		s.logger.Warn("error serializing product edits", zap.Error(err))
		return false
	}
	return s.safeSet(ctx, KeyProductEdits, string(data))
}

// UpdateProductEdit records value for field on product id. The value must be
// a string for title, a finite number for price and an integral number for
// stock; a mismatch returns false and writes nothing.
func (s *Store) UpdateProductEdit(ctx context.Context, id int64, field domain.EditField, value any) bool {
	var apply func(*domain.EditRecord)
	switch field {
	case domain.EditFieldTitle:
		if v, ok := value.(string); ok {
			apply = func(rec *domain.EditRecord) { rec.Title = &v }
		}
	case domain.EditFieldPrice:
		if v, ok := toFloat(value); ok {
			apply = func(rec *domain.EditRecord) { rec.Price = &v }
		}
	case domain.EditFieldStock:
		if f, ok := toFloat(value); ok {
			if n, ok := integral(f); ok {
				apply = func(rec *domain.EditRecord) { rec.Stock = &n }
			}
		}
	default:
		s.logger.Warn("unknown edit field", zap.String("field", string(field)))
		return false
	}
	if apply == nil {
		s.logger.Warn("invalid value type for field",
			zap.String("field", string(field)), zap.String("type", fmt.Sprintf("%T", value)))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	edits, ok := s.loadProductEdits(ctx)
	if !ok {
		return false
	}
	rec := edits[id]
	apply(&rec)
	edits[id] = rec
	return s.SetProductEdits(ctx, edits)
}

// ClearAllStorage removes both persisted keys.
func (s *Store) ClearAllStorage(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := true
	for _, key := range []string{KeyLocalProducts, KeyProductEdits} {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.logger.Warn("error clearing storage", zap.String("key", key), zap.Error(err))
			ok = false
		}
	}
	return ok
}

// Ping reports whether the underlying store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func integral(f float64) (int, bool) {
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
