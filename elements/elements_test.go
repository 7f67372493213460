package elements

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GabrielGBraga/mise/models"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore applies the same filter semantics as the mongo query.
type memStore struct {
	mu       sync.Mutex
	els      []models.Element
	searches int
	limits   []int
	err      error
}

func (m *memStore) Search(_ context.Context, query string, limit int) ([]models.Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	m.limits = append(m.limits, limit)
	if m.err != nil {
		return nil, m.err
	}
	out := []models.Element{}
	for _, el := range m.els {
		if matches(SearchFilter(query), el.Name) && len(out) < limit {
			out = append(out, el)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id primitive.ObjectID) (models.Element, error) {
	for _, el := range m.els {
		if el.ID == id {
			return el, nil
		}
	}
	return models.Element{}, ErrNotFound
}

func (m *memStore) Count(context.Context) (int64, error) { return int64(len(m.els)), nil }

func (m *memStore) InsertMany(_ context.Context, els []models.Element) error {
	for _, el := range els {
		el.ID = primitive.NewObjectID()
		m.els = append(m.els, el)
	}
	return nil
}

func matches(filter bson.M, name string) bool {
	cond, ok := filter["name"].(bson.M)
	if !ok {
		return true
	}
	re := cond["$regex"].(primitive.Regex)
	return regexp.MustCompile("(?" + re.Options + ")" + re.Pattern).MatchString(name)
}

func TestSearchFilter(t *testing.T) {
	if f := SearchFilter("   "); len(f) != 0 {
		t.Fatalf("blank query filter = %v", f)
	}

	cases := []struct {
		query, name string
		want        bool
	}{
		{"flo", "Flour", true},
		{"FLO", "flour", true},
		{"our", "Flour", true},
		{"sugar", "Brown Sugar", true},
		{"milk", "Flour", false},
		{"a.b", "axb", false},
		{"(", "Bay Leaf (dried)", true},
	}
	for _, c := range cases {
		if got := matches(SearchFilter(c.query), c.name); got != c.want {
			t.Errorf("query %q on %q = %v, want %v", c.query, c.name, got, c.want)
		}
	}
}

type memCache struct {
	mu   sync.Mutex
	vals map[string][]byte
	ttls map[string]time.Duration
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[key] = val
	c.ttls[key] = ttl
	return nil
}

func TestCachedStoreServesRepeatSearches(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	if _, err := Seed(ctx, store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cache := &memCache{vals: map[string][]byte{}, ttls: map[string]time.Duration{}}
	cached := NewCachedStore(store, cache, time.Minute)

	first, err := cached.Search(ctx, "Sugar", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	second, err := cached.Search(ctx, " sugar ", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if store.searches != 1 {
		t.Fatalf("store searched %d times, want 1", store.searches)
	}
	if len(first) != 2 || len(second) != len(first) || second[0].Name != first[0].Name {
		t.Fatalf("first=%v second=%v", first, second)
	}
	if cache.ttls["sugar|10"] != time.Minute {
		t.Fatalf("ttl = %v", cache.ttls)
	}

	if _, err := cached.Search(ctx, "sugar", 5); err != nil {
		t.Fatalf("search: %v", err)
	}
	if store.searches != 2 {
		t.Fatalf("different limit should miss the cache")
	}
}

func TestSeedSkipsPopulatedCatalog(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	n, err := Seed(ctx, store)
	if err != nil || n == 0 {
		t.Fatalf("seed = %d, %v", n, err)
	}
	again, err := Seed(ctx, store)
	if err != nil || again != 0 {
		t.Fatalf("second seed = %d, %v", again, err)
	}
	if len(store.els) != n {
		t.Fatalf("catalog has %d elements, want %d", len(store.els), n)
	}
}

func TestSearchElementsCapsLimit(t *testing.T) {
	store := &memStore{}
	h := NewHandler(store)

	for _, c := range []struct {
		query string
		want  int
	}{
		{"", DefaultLimit},
		{"?limit=3", 3},
		{"?limit=500", MaxLimit},
		{"?limit=-2", DefaultLimit},
	} {
		rec := httptest.NewRecorder()
		h.SearchElements(rec, httptest.NewRequest("GET", "/api/v1/elements"+c.query, nil), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%q code = %d", c.query, rec.Code)
		}
		if got := store.limits[len(store.limits)-1]; got != c.want {
			t.Errorf("%q limit = %d, want %d", c.query, got, c.want)
		}
	}
}

func TestSearchElementsReportsStoreFailure(t *testing.T) {
	h := NewHandler(&memStore{err: errors.New("boom")})
	rec := httptest.NewRecorder()
	h.SearchElements(rec, httptest.NewRequest("GET", "/api/v1/elements?search=fl", nil), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to fetch elements") {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestGetElement(t *testing.T) {
	store := &memStore{}
	if _, err := Seed(context.Background(), store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := NewHandler(store)
	want := store.els[0]

	rec := httptest.NewRecorder()
	h.GetElement(rec, httptest.NewRequest("GET", "/", nil), httprouter.Params{{Key: "id", Value: want.ID.Hex()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var got models.Element
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != want.Name || len(got.Units) != len(want.Units) {
		t.Fatalf("element = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.GetElement(rec, httptest.NewRequest("GET", "/", nil), httprouter.Params{{Key: "id", Value: primitive.NewObjectID().Hex()}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetElement(rec, httptest.NewRequest("GET", "/", nil), httprouter.Params{{Key: "id", Value: "nope"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id code = %d", rec.Code)
	}
}
