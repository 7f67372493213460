// Package composer validates a new recipe and writes it to the backend:
// cover image, recipe row, ingredient rows, instruction rows, in that order.
package composer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/GabrielGBraga/mise/gateway"
	"github.com/GabrielGBraga/mise/globals"
	"github.com/GabrielGBraga/mise/models"
	"github.com/GabrielGBraga/mise/session"
)

var (
	ErrNotAuthenticated = errors.New("you must be signed in to create a recipe")
	ErrBusy             = errors.New("a recipe is already being saved")
)

const genericFailure = "Something went wrong while saving the recipe"

type Backend interface {
	Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) error
	InsertRecipe(ctx context.Context, in gateway.RecipeInput) (models.Recipe, error)
	InsertIngredients(ctx context.Context, recipeID string, in []gateway.IngredientInput) error
	InsertInstructions(ctx context.Context, recipeID string, in []gateway.InstructionInput) error
	DeleteRecipe(ctx context.Context, id string) error
}

type SessionSource interface {
	Snapshot() session.State
}

type Composer struct {
	backend Backend
	session SessionSource
	busy    atomic.Bool
	now     func() time.Time
	open    func(path string) (io.ReadCloser, error)
}

func New(backend Backend, sess SessionSource) *Composer {
	return &Composer{
		backend: backend,
		session: sess,
		now:     time.Now,
		open:    func(path string) (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Busy reports whether a Submit is in flight.
func (c *Composer) Busy() bool { return c.busy.Load() }

// Submit validates f and saves it. Nothing reaches the backend unless f is
// valid and a session is present. If the ingredient or instruction insert
// fails the recipe row is deleted again.
func (c *Composer) Submit(ctx context.Context, f Form) (models.Recipe, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return models.Recipe{}, ErrBusy
	}
	defer c.busy.Store(false)

	draft, err := Validate(f)
	if err != nil {
		return models.Recipe{}, err
	}
	if !c.session.Snapshot().Authenticated() {
		return models.Recipe{}, ErrNotAuthenticated
	}

	if draft.ImagePath != "" {
		name, err := c.uploadImage(ctx, draft.ImagePath)
		if err != nil {
			return models.Recipe{}, fmt.Errorf("upload image: %w", err)
		}
		draft.Recipe.Image = name
	}

	rec, err := c.backend.InsertRecipe(ctx, draft.Recipe)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("insert recipe: %w", err)
	}
	id := rec.ID.Hex()

	if len(draft.Ingredients) > 0 {
		if err := c.backend.InsertIngredients(ctx, id, draft.Ingredients); err != nil {
			return models.Recipe{}, c.rollback(ctx, id, fmt.Errorf("insert ingredients: %w", err))
		}
	}
	if err := c.backend.InsertInstructions(ctx, id, draft.Instructions); err != nil {
		return models.Recipe{}, c.rollback(ctx, id, fmt.Errorf("insert instructions: %w", err))
	}

	log.Printf("✅ recipe %s saved", id)
	return rec, nil
}

// ImageName is the stored name for a cover picked at path.
func ImageName(path string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = ".jpg"
	}
	return strconv.FormatInt(at.UnixMilli(), 10) + ext
}

func (c *Composer) uploadImage(ctx context.Context, path string) (string, error) {
	f, err := c.open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	name := ImageName(path, c.now())
	if err := c.backend.Upload(ctx, globals.RecipeImagesBucket, name, "image/jpeg", f); err != nil {
		return "", err
	}
	return name, nil
}

// rollback deletes the half-written recipe and returns cause, annotated when
// the delete failed too.
func (c *Composer) rollback(ctx context.Context, id string, cause error) error {
	// runs even when ctx is already done
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := c.backend.DeleteRecipe(dctx, id); err != nil {
		log.Printf("❌ rollback recipe %s: %v", id, err)
		return fmt.Errorf("%w (rollback of recipe %s failed: %v)", cause, id, err)
	}
	log.Printf("↩️ recipe %s rolled back", id)
	return cause
}

// Message is what to show the user for an error returned by Submit.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrBusy) {
		return err.Error()
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return genericFailure
}
