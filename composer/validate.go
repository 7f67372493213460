package composer

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/GabrielGBraga/mise/gateway"
	"github.com/GabrielGBraga/mise/picker"
)

const (
	minTitleLength = 3
	minStepLength  = 5
)

var (
	digits  = regexp.MustCompile(`^[0-9]+$`)
	decimal = regexp.MustCompile(`^[0-9]+([.,][0-9]+)?$`)
)

// Form is the composer's raw input. Numeric fields are kept as typed.
type Form struct {
	Title       string
	Description string
	PrepTime    string
	Servings    string
	Difficulty  string
	VideoURL    string
	// ImagePath is a local file to upload as the cover, or empty.
	ImagePath   string
	Ingredients []picker.Value
	Steps       []string
}

// ValidationError maps form fields to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid recipe: " + strings.Join(parts, "; ")
}

// Draft is a validated Form with every field parsed.
type Draft struct {
	Recipe       gateway.RecipeInput
	Ingredients  []gateway.IngredientInput
	Instructions []gateway.InstructionInput
	ImagePath    string
}

// Validate checks f and parses it into a Draft. The error, when non-nil, is a
// *ValidationError.
func Validate(f Form) (Draft, error) {
	errs := map[string]string{}

	if len([]rune(strings.TrimSpace(f.Title))) < minTitleLength {
		errs["title"] = fmt.Sprintf("title must be at least %d characters", minTitleLength)
	}
	prep, ok := parseDigits(f.PrepTime)
	if !ok {
		errs["prep_time"] = "prep time must be a whole number of minutes"
	}
	servings, ok := parseDigits(f.Servings)
	if !ok {
		errs["servings"] = "servings must be a whole number"
	}
	if strings.TrimSpace(f.Difficulty) == "" {
		errs["difficulty"] = "difficulty is required"
	}
	if v := strings.TrimSpace(f.VideoURL); v != "" {
		if u, err := url.Parse(v); err != nil || !u.IsAbs() || u.Host == "" {
			errs["video_url"] = "video URL must be a valid URL"
		}
	}

	ings := make([]gateway.IngredientInput, 0, len(f.Ingredients))
	if len(f.Ingredients) == 0 {
		errs["ingredients"] = "at least one ingredient required"
	}
	for i, line := range f.Ingredients {
		key := fmt.Sprintf("ingredients[%d]", i)
		q := strings.TrimSpace(line.Quantity)
		switch {
		case line.Element == nil:
			errs[key] = "pick an ingredient"
		case q == "":
			errs[key] = "quantity is required"
		case strings.TrimSpace(line.Unit) == "":
			errs[key] = "unit is required"
		case !decimal.MatchString(q):
			errs[key] = "quantity must be a number"
		default:
			qty, err := strconv.ParseFloat(strings.Replace(q, ",", ".", 1), 64)
			if err != nil {
				errs[key] = "quantity must be a number"
				continue
			}
			ings = append(ings, gateway.IngredientInput{
				ElementID: line.Element.ID.Hex(),
				Quantity:  qty,
				Unit:      strings.TrimSpace(line.Unit),
			})
		}
	}

	if len(f.Steps) == 0 {
		errs["steps"] = "at least one step required"
	}
	for i, step := range f.Steps {
		if len([]rune(strings.TrimSpace(step))) < minStepLength {
			errs[fmt.Sprintf("steps[%d]", i)] = fmt.Sprintf("step must be at least %d characters", minStepLength)
		}
	}

	if len(errs) > 0 {
		return Draft{}, &ValidationError{Fields: errs}
	}
	return Draft{
		Recipe: gateway.RecipeInput{
			Title:       strings.TrimSpace(f.Title),
			Description: strings.TrimSpace(f.Description),
			PrepTime:    prep,
			Servings:    servings,
			Difficulty:  strings.TrimSpace(f.Difficulty),
			VideoURL:    strings.TrimSpace(f.VideoURL),
		},
		Ingredients:  ings,
		Instructions: NumberSteps(f.Steps),
		ImagePath:    f.ImagePath,
	}, nil
}

// NumberSteps numbers steps 1..n in list order.
func NumberSteps(steps []string) []gateway.InstructionInput {
	out := make([]gateway.InstructionInput, len(steps))
	for i, s := range steps {
		out[i] = gateway.InstructionInput{StepNumber: i + 1, Description: strings.TrimSpace(s)}
	}
	return out
}

func parseDigits(s string) (int, bool) {
	if !digits.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
