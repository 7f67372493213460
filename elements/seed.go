package elements

import (
	"context"
	"fmt"
	"log"

	"github.com/GabrielGBraga/mise/models"
)

// starterCatalog is what Seed writes into an empty catalog.
var starterCatalog = []models.Element{
	{Name: "Flour", Units: []string{"g", "kg", "cup", "tbsp"}},
	{Name: "Sugar", Units: []string{"g", "kg", "cup", "tbsp", "tsp"}},
	{Name: "Brown Sugar", Units: []string{"g", "cup", "tbsp"}},
	{Name: "Butter", Units: []string{"g", "tbsp", "cup"}},
	{Name: "Milk", Units: []string{"ml", "l", "cup"}},
	{Name: "Egg", Units: []string{"unit"}},
	{Name: "Salt", Units: []string{"g", "tsp", "pinch"}},
	{Name: "Baking Powder", Units: []string{"g", "tsp"}},
	{Name: "Dark Chocolate", Units: []string{"g", "bar"}},
	{Name: "Cocoa Powder", Units: []string{"g", "tbsp", "cup"}},
	{Name: "Vanilla Extract", Units: []string{"ml", "tsp"}},
	{Name: "Olive Oil", Units: []string{"ml", "tbsp"}},
	{Name: "Garlic", Units: []string{"clove", "unit"}},
	{Name: "Onion", Units: []string{"unit", "g"}},
	{Name: "Tomato", Units: []string{"unit", "g"}},
	{Name: "Rice", Units: []string{"g", "cup"}},
	{Name: "Black Pepper", Units: []string{"g", "tsp", "pinch"}},
	{Name: "Water", Units: []string{"ml", "l", "cup"}},
	{Name: "Bay Leaf", Units: []string{}},
}

// Seed fills the catalog with starterCatalog when it is empty.
func Seed(ctx context.Context, store Store) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count elements: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	els := make([]models.Element, len(starterCatalog))
	copy(els, starterCatalog)
	if err := store.InsertMany(ctx, els); err != nil {
		return 0, fmt.Errorf("seed elements: %w", err)
	}
	log.Printf("🌱 seeded %d elements", len(els))
	return len(els), nil
}
