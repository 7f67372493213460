package recipes

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/GabrielGBraga/mise/models"
	"github.com/GabrielGBraga/mise/utils"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 5 * time.Second

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// GetRecipes lists recipes newest first, optionally filtered by ?search= on the title.
func (h *Handler) GetRecipes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	recipes, err := h.store.List(ctx, r.URL.Query().Get("search"))
	if err != nil {
		log.Printf("❌ list recipes: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch recipes")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, recipes)
}

func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, ok := h.loadRecipe(w, r, ps)
	if !ok {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rec)
}

type recipeInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PrepTime    int    `json:"prep_time"`
	Servings    int    `json:"servings"`
	Difficulty  string `json:"difficulty"`
	Image       string `json:"image"`
	VideoURL    string `json:"video_url"`
}

// CreateRecipe inserts a recipe row owned by the caller and returns it with its id.
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var in recipeInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if len(in.Title) < 3 {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Title must be at least 3 characters")
		return
	}
	if in.PrepTime < 0 || in.Servings < 0 {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Prep time and servings must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rec, err := h.store.Insert(ctx, models.Recipe{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		PrepTime:    in.PrepTime,
		Servings:    in.Servings,
		Difficulty:  in.Difficulty,
		Image:       in.Image,
		VideoURL:    in.VideoURL,
		CreatedAt:   h.now().UTC(),
	})
	if err != nil {
		log.Printf("❌ insert recipe: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create recipe")
		return
	}
	log.Printf("🍳 recipe %s created by %s", rec.ID.Hex(), userID)
	utils.RespondWithJSON(w, http.StatusCreated, rec)
}

// DeleteRecipe removes an owned recipe together with its ingredients and instructions.
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, ok := h.loadOwnedRecipe(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.store.Delete(ctx, rec.ID); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("❌ delete recipe %s: %v", rec.ID.Hex(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetIngredients(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := recipeID(w, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	lines, err := h.store.IngredientLines(ctx, id)
	if err != nil {
		log.Printf("❌ ingredients of %s: %v", id.Hex(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch ingredients")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, lines)
}

type ingredientInput struct {
	ElementID primitive.ObjectID `json:"element_id"`
	Quantity  float64            `json:"quantity"`
	Unit      string             `json:"unit"`
}

// AddIngredients inserts a batch of ingredient rows under an owned recipe.
func (h *Handler) AddIngredients(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in []ingredientInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateIngredients(in); msg != "" {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	rec, ok := h.loadOwnedRecipe(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ids := distinctElementIDs(in)
	n, err := h.store.CountElements(ctx, ids)
	if err != nil {
		log.Printf("❌ count elements: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add ingredients")
		return
	}
	if n != int64(len(ids)) {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Unknown element in ingredients")
		return
	}

	ings := make([]models.Ingredient, len(in))
	for i, line := range in {
		ings[i] = models.Ingredient{
			RecipeID:  rec.ID,
			ElementID: line.ElementID,
			Quantity:  line.Quantity,
			Unit:      strings.TrimSpace(line.Unit),
		}
	}
	if err := h.store.InsertIngredients(ctx, ings); err != nil {
		log.Printf("❌ insert ingredients for %s: %v", rec.ID.Hex(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add ingredients")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"inserted": len(ings)})
}

func (h *Handler) GetInstructions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := recipeID(w, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	steps, err := h.store.Instructions(ctx, id)
	if err != nil {
		log.Printf("❌ instructions of %s: %v", id.Hex(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch instructions")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, steps)
}

type instructionInput struct {
	StepNumber  int    `json:"step_number"`
	Description string `json:"description"`
}

// AddInstructions inserts an owned recipe's steps. The batch must be numbered 1..n in order.
func (h *Handler) AddInstructions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in []instructionInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateInstructions(in); msg != "" {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	rec, ok := h.loadOwnedRecipe(w, r, ps)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	steps := make([]models.Instruction, len(in))
	for i, s := range in {
		steps[i] = models.Instruction{RecipeID: rec.ID, StepNumber: s.StepNumber, Description: s.Description}
	}
	if err := h.store.InsertInstructions(ctx, steps); err != nil {
		log.Printf("❌ insert instructions for %s: %v", rec.ID.Hex(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add instructions")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"inserted": len(steps)})
}

func validateIngredients(in []ingredientInput) string {
	if len(in) == 0 {
		return "At least one ingredient is required"
	}
	for _, line := range in {
		if line.ElementID.IsZero() {
			return "Every ingredient needs an element"
		}
		if strings.TrimSpace(line.Unit) == "" {
			return "Every ingredient needs a unit"
		}
		if line.Quantity < 0 {
			return "Quantity must not be negative"
		}
	}
	return ""
}

func validateInstructions(in []instructionInput) string {
	if len(in) == 0 {
		return "At least one instruction is required"
	}
	for i, s := range in {
		if s.StepNumber != i+1 {
			return "Step numbers must run from 1 without gaps"
		}
		if strings.TrimSpace(s.Description) == "" {
			return "Every step needs a description"
		}
	}
	return ""
}

func distinctElementIDs(in []ingredientInput) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(in))
	ids := make([]primitive.ObjectID, 0, len(in))
	for _, line := range in {
		if !seen[line.ElementID] {
			seen[line.ElementID] = true
			ids = append(ids, line.ElementID)
		}
	}
	return ids
}

func recipeID(w http.ResponseWriter, ps httprouter.Params) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid recipe ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) loadRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (models.Recipe, bool) {
	id, ok := recipeID(w, ps)
	if !ok {
		return models.Recipe{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rec, err := h.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Recipe not found")
		return models.Recipe{}, false
	}
	if err != nil {
		log.Printf("❌ get recipe %s: %v", id.Hex(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch recipe")
		return models.Recipe{}, false
	}
	return rec, true
}

func (h *Handler) loadOwnedRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (models.Recipe, bool) {
	userID := utils.GetUserIDFromContext(r.Context())
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return models.Recipe{}, false
	}
	rec, ok := h.loadRecipe(w, r, ps)
	if !ok {
		return models.Recipe{}, false
	}
	if rec.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "You do not own this recipe")
		return models.Recipe{}, false
	}
	return rec, true
}
