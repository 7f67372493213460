package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/GabrielGBraga/mise/models"
)

type RecipeInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PrepTime    int    `json:"prep_time"`
	Servings    int    `json:"servings"`
	Difficulty  string `json:"difficulty"`
	Image       string `json:"image"`
	VideoURL    string `json:"video_url"`
}

type IngredientInput struct {
	ElementID string  `json:"element_id"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
}

type InstructionInput struct {
	StepNumber  int    `json:"step_number"`
	Description string `json:"description"`
}

func (c *Client) SearchElements(ctx context.Context, query string, limit int) ([]models.Element, error) {
	q := url.Values{"search": {query}, "limit": {strconv.Itoa(limit)}}
	var out []models.Element
	err := c.request(ctx, http.MethodGet, "/api/v1/elements?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) ListRecipes(ctx context.Context, search string) ([]models.Recipe, error) {
	path := "/api/v1/recipes"
	if search != "" {
		path += "?" + url.Values{"search": {search}}.Encode()
	}
	var out []models.Recipe
	err := c.request(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GetRecipe(ctx context.Context, id string) (models.Recipe, error) {
	var out models.Recipe
	err := c.request(ctx, http.MethodGet, recipePath(id, ""), nil, &out)
	return out, err
}

func (c *Client) IngredientLines(ctx context.Context, recipeID string) ([]models.IngredientLine, error) {
	var out []models.IngredientLine
	err := c.request(ctx, http.MethodGet, recipePath(recipeID, "/ingredients"), nil, &out)
	return out, err
}

func (c *Client) Instructions(ctx context.Context, recipeID string) ([]models.Instruction, error) {
	var out []models.Instruction
	err := c.request(ctx, http.MethodGet, recipePath(recipeID, "/instructions"), nil, &out)
	return out, err
}

func (c *Client) InsertRecipe(ctx context.Context, in RecipeInput) (models.Recipe, error) {
	var out models.Recipe
	err := c.request(ctx, http.MethodPost, "/api/v1/recipes", in, &out)
	return out, err
}

func (c *Client) InsertIngredients(ctx context.Context, recipeID string, in []IngredientInput) error {
	return c.request(ctx, http.MethodPost, recipePath(recipeID, "/ingredients"), in, nil)
}

func (c *Client) InsertInstructions(ctx context.Context, recipeID string, in []InstructionInput) error {
	return c.request(ctx, http.MethodPost, recipePath(recipeID, "/instructions"), in, nil)
}

func (c *Client) DeleteRecipe(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, recipePath(id, ""), nil, nil)
}

// Upload stores body in bucket under name.
func (c *Client) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) error {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if err := mw.WriteField("name", name); err != nil {
		return err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, body); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/api/v1/storage/"+url.PathEscape(bucket), buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, nil)
}

// PublicURL is where a stored object can be fetched without a token.
func (c *Client) PublicURL(bucket, name string) string {
	return c.server + "/static/" + url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

func recipePath(id, suffix string) string {
	return "/api/v1/recipes/recipe/" + url.PathEscape(id) + suffix
}
