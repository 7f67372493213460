// Package browse backs the recipe list and recipe detail screens.
package browse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/GabrielGBraga/mise/gateway"
	"github.com/GabrielGBraga/mise/globals"
	"github.com/GabrielGBraga/mise/models"
	"golang.org/x/sync/errgroup"
)

var ErrNotFound = errors.New("recipe not found")

type Backend interface {
	ListRecipes(ctx context.Context, search string) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, id string) (models.Recipe, error)
	IngredientLines(ctx context.Context, recipeID string) ([]models.IngredientLine, error)
	Instructions(ctx context.Context, recipeID string) ([]models.Instruction, error)
	PublicURL(bucket, name string) string
}

// List holds the recipe list and its search text.
type List struct {
	backend Backend

	mu      sync.Mutex
	search  string
	recipes []models.Recipe
}

func NewList(backend Backend) *List {
	return &List{backend: backend}
}

// Load fetches recipes newest first, filtered by the current search text.
func (l *List) Load(ctx context.Context) ([]models.Recipe, error) {
	l.mu.Lock()
	search := l.search
	l.mu.Unlock()

	recipes, err := l.backend.ListRecipes(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// a search changed while this load was in flight wins
	if l.search == search {
		l.recipes = recipes
	}
	return recipes, nil
}

func (l *List) Refresh(ctx context.Context) ([]models.Recipe, error) {
	return l.Load(ctx)
}

func (l *List) SetSearch(ctx context.Context, search string) ([]models.Recipe, error) {
	l.mu.Lock()
	l.search = search
	l.mu.Unlock()
	return l.Load(ctx)
}

func (l *List) Search() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.search
}

func (l *List) Recipes() []models.Recipe {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Recipe(nil), l.recipes...)
}

// CoverURL is the public URL of rec's cover image, or "" when it has none.
func CoverURL(b Backend, rec models.Recipe) string {
	if rec.Image == "" {
		return ""
	}
	return b.PublicURL(globals.RecipeImagesBucket, rec.Image)
}

// Detail fetches a recipe, its ingredient lines and its steps concurrently.
// A 404 or 400 from any of the three means the id names no recipe.
func Detail(ctx context.Context, b Backend, id string) (models.RecipeDetail, error) {
	var d models.RecipeDetail
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := b.GetRecipe(gctx, id)
		if err != nil {
			return fmt.Errorf("get recipe: %w", err)
		}
		d.Recipe = rec
		return nil
	})
	g.Go(func() error {
		lines, err := b.IngredientLines(gctx, id)
		if err != nil {
			return fmt.Errorf("get ingredients: %w", err)
		}
		d.Ingredients = lines
		return nil
	})
	g.Go(func() error {
		steps, err := b.Instructions(gctx, id)
		if err != nil {
			return fmt.Errorf("get instructions: %w", err)
		}
		d.Instructions = steps
		return nil
	})

	if err := g.Wait(); err != nil {
		if isNotFound(err) {
			return models.RecipeDetail{}, ErrNotFound
		}
		return models.RecipeDetail{}, err
	}
	return d, nil
}

func isNotFound(err error) bool {
	var apiErr *gateway.APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest)
}
