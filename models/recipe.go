package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Element is an ingredient catalog entry and the units it may be measured in.
type Element struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name"          json:"name"`
	Units []string           `bson:"units"         json:"units"`
}

type Recipe struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"  json:"id"`
	UserID      string             `bson:"user_id"        json:"user_id"`
	Title       string             `bson:"title"          json:"title"`
	Description string             `bson:"description"    json:"description"`
	PrepTime    int                `bson:"prep_time"      json:"prep_time"`
	Servings    int                `bson:"servings"       json:"servings"`
	Difficulty  string             `bson:"difficulty"     json:"difficulty"`
	Image       string             `bson:"image"          json:"image"`
	VideoURL    string             `bson:"video_url"      json:"video_url,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"     json:"created_at"`
}

// Ingredient is one recipe line item pointing at a catalog element.
type Ingredient struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipeID  primitive.ObjectID `bson:"recipe_id"     json:"recipe_id"`
	ElementID primitive.ObjectID `bson:"element_id"    json:"element_id"`
	Quantity  float64            `bson:"quantity"      json:"quantity"`
	Unit      string             `bson:"unit"          json:"unit"`
}

// IngredientLine is an Ingredient joined with its element's display name.
type IngredientLine struct {
	Ingredient  `bson:",inline"`
	ElementName string `bson:"element_name" json:"element_name"`
}

type Instruction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipeID    primitive.ObjectID `bson:"recipe_id"     json:"recipe_id"`
	StepNumber  int                `bson:"step_number"   json:"step_number"`
	Description string             `bson:"description"   json:"description"`
}

// RecipeDetail is everything the detail view renders.
type RecipeDetail struct {
	Recipe       Recipe           `json:"recipe"`
	Ingredients  []IngredientLine `json:"ingredients"`
	Instructions []Instruction    `json:"instructions"`
}
