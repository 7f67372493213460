package elements

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/GabrielGBraga/mise/models"
	"github.com/GabrielGBraga/mise/utils"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

var ErrNotFound = errors.New("element not found")

type Store interface {
	Search(ctx context.Context, query string, limit int) ([]models.Element, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Element, error)
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, els []models.Element) error
}

// MongoStore reads the elements collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// SearchFilter matches names containing query, case-insensitively.
func SearchFilter(query string) bson.M {
	query = strings.TrimSpace(query)
	if query == "" {
		return bson.M{}
	}
	return bson.M{"name": bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}}
}

func (s *MongoStore) Search(ctx context.Context, query string, limit int) ([]models.Element, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, SearchFilter(query), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	els := make([]models.Element, 0)
	if err := cursor.All(ctx, &els); err != nil {
		return nil, err
	}
	return els, nil
}

func (s *MongoStore) Get(ctx context.Context, id primitive.ObjectID) (models.Element, error) {
	var el models.Element
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&el)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Element{}, ErrNotFound
	}
	return el, err
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) InsertMany(ctx context.Context, els []models.Element) error {
	docs := make([]interface{}, len(els))
	for i := range els {
		docs[i] = els[i]
	}
	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

// Cache is the blob cache search results are kept in.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// CachedStore keeps search results in a Cache for TTL. The catalog is written
// out of band, so entries are only ever aged out.
type CachedStore struct {
	Store
	cache Cache
	ttl   time.Duration
}

func NewCachedStore(store Store, cache Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: cache, ttl: ttl}
}

func (c *CachedStore) Search(ctx context.Context, query string, limit int) ([]models.Element, error) {
	key := cacheKey(query, limit)
	if val, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var els []models.Element
		if err := json.Unmarshal(val, &els); err == nil {
			return els, nil
		}
	} else if err != nil {
		log.Printf("⚠️ element cache get %q: %v", key, err)
	}

	els, err := c.Store.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(els); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			log.Printf("⚠️ element cache set %q: %v", key, err)
		}
	}
	return els, nil
}

func cacheKey(query string, limit int) string {
	return strings.ToLower(strings.TrimSpace(query)) + "|" + strconv.Itoa(limit)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// SearchElements answers GET /api/v1/elements?search=&limit=.
func (h *Handler) SearchElements(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := utils.QueryInt(r, "limit", DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}

	els, err := h.store.Search(ctx, r.URL.Query().Get("search"), limit)
	if err != nil {
		log.Printf("❌ search elements: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch elements")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, els)
}

func (h *Handler) GetElement(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid element ID")
		return
	}
	el, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Element not found")
		return
	}
	if err != nil {
		log.Printf("❌ get element %s: %v", id.Hex(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch element")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, el)
}
