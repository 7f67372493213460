package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/GabrielGBraga/mise/composer"
	"github.com/GabrielGBraga/mise/models"
	"github.com/GabrielGBraga/mise/picker"
)

// formFile is the JSON a recipe is composed from. Ingredients name their
// element; it is looked up in the catalog the same way the picker does.
type formFile struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PrepTime    string `json:"prep_time"`
	Servings    string `json:"servings"`
	Difficulty  string `json:"difficulty"`
	VideoURL    string `json:"video_url"`
	Ingredients []struct {
		Element  string `json:"element"`
		Quantity string `json:"quantity"`
		Unit     string `json:"unit"`
	} `json:"ingredients"`
	Steps []string `json:"steps"`
}

func readForm(path string) (formFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return formFile{}, err
	}
	var f formFile
	if err := json.Unmarshal(data, &f); err != nil {
		return formFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// buildForm turns f into a composer.Form, driving one picker per ingredient.
// An element that cannot be found is left unpicked so validation reports it.
func buildForm(ctx context.Context, s picker.Searcher, f formFile, imagePath string) (composer.Form, error) {
	form := composer.Form{
		Title:       f.Title,
		Description: f.Description,
		PrepTime:    f.PrepTime,
		Servings:    f.Servings,
		Difficulty:  f.Difficulty,
		VideoURL:    f.VideoURL,
		ImagePath:   imagePath,
		Steps:       f.Steps,
	}
	for _, in := range f.Ingredients {
		p := picker.New(s, nil)
		p.Open()
		p.Search(ctx, in.Element)
		if el, ok := bestMatch(p.Results(), in.Element); ok {
			p.Select(el)
			if in.Unit != "" {
				if err := p.SetUnit(in.Unit); err != nil {
					return composer.Form{}, fmt.Errorf("%s: unit %q: %w", el.Name, in.Unit, err)
				}
			}
		}
		p.SetQuantity(in.Quantity)
		form.Ingredients = append(form.Ingredients, p.Value())
	}
	return form, nil
}

func bestMatch(results []models.Element, name string) (models.Element, bool) {
	for _, el := range results {
		if strings.EqualFold(el.Name, strings.TrimSpace(name)) {
			return el, true
		}
	}
	if len(results) > 0 {
		return results[0], true
	}
	return models.Element{}, false
}
