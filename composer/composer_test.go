package composer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GabrielGBraga/mise/gateway"
	"github.com/GabrielGBraga/mise/models"
	"github.com/GabrielGBraga/mise/picker"
	"github.com/GabrielGBraga/mise/session"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixedSession struct{ st session.State }

func (f fixedSession) Snapshot() session.State { return f.st }

var signedIn = fixedSession{session.State{Session: &models.Session{AccessToken: "t"}}}

type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	recipeID     primitive.ObjectID
	recipe       gateway.RecipeInput
	ingredients  []gateway.IngredientInput
	instructions []gateway.InstructionInput
	upload       struct{ bucket, name, contentType, body string }

	failIngredients  error
	failInstructions error
	failDelete       error
	block            chan struct{}
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *fakeBackend) Upload(_ context.Context, bucket, name, contentType string, body io.Reader) error {
	b.record("upload")
	data, _ := io.ReadAll(body)
	b.upload.bucket, b.upload.name, b.upload.contentType, b.upload.body = bucket, name, contentType, string(data)
	return nil
}

func (b *fakeBackend) InsertRecipe(_ context.Context, in gateway.RecipeInput) (models.Recipe, error) {
	if b.block != nil {
		<-b.block
	}
	b.record("recipe")
	b.recipe = in
	b.recipeID = primitive.NewObjectID()
	return models.Recipe{ID: b.recipeID, Title: in.Title, Image: in.Image}, nil
}

func (b *fakeBackend) InsertIngredients(_ context.Context, id string, in []gateway.IngredientInput) error {
	b.record("ingredients:" + id)
	b.ingredients = in
	return b.failIngredients
}

func (b *fakeBackend) InsertInstructions(_ context.Context, id string, in []gateway.InstructionInput) error {
	b.record("instructions:" + id)
	b.instructions = in
	return b.failInstructions
}

func (b *fakeBackend) DeleteRecipe(_ context.Context, id string) error {
	b.record("delete:" + id)
	return b.failDelete
}

var flour = models.Element{ID: primitive.NewObjectID(), Name: "Flour", Units: []string{"g", "kg"}}

func validForm() Form {
	return Form{
		Title:       "Bread",
		PrepTime:    "10",
		Servings:    "4",
		Difficulty:  "Easy",
		Ingredients: []picker.Value{{Element: &flour, Quantity: "500", Unit: "g"}},
		Steps:       []string{"Mix everything", "Bake 40 minutes", "Cool on a rack"},
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	return verr.Fields
}

func TestValidateFields(t *testing.T) {
	f := validForm()
	f.Title = "ab"
	if fields := fieldErrors(t, func() error { _, err := Validate(f); return err }()); fields["title"] == "" {
		t.Fatalf("fields = %v", fields)
	}
	f.Title = "abc"
	if _, err := Validate(f); err != nil {
		t.Fatalf("abc title: %v", err)
	}

	f = validForm()
	f.PrepTime = "ten"
	f.Servings = "-1"
	f.Difficulty = " "
	f.VideoURL = "not a url"
	_, err := Validate(f)
	fields := fieldErrors(t, err)
	for _, k := range []string{"prep_time", "servings", "difficulty", "video_url"} {
		if fields[k] == "" {
			t.Errorf("missing %s error in %v", k, fields)
		}
	}

	for _, q := range []string{"NaN", "Inf", "-Inf", "0x1p3", "1e3", " ", "1.", "-2"} {
		f = validForm()
		f.Ingredients[0].Quantity = q
		_, err := Validate(f)
		if fields := fieldErrors(t, err); fields["ingredients[0]"] == "" {
			t.Errorf("quantity %q accepted: %v", q, fields)
		}
	}
	for q, want := range map[string]float64{"2": 2, "0.5": 0.5, "1,25": 1.25} {
		f = validForm()
		f.Ingredients[0].Quantity = q
		d, err := Validate(f)
		if err != nil || d.Ingredients[0].Quantity != want {
			t.Errorf("quantity %q = %v, %v", q, d.Ingredients, err)
		}
	}

	f = validForm()
	f.VideoURL = "https://video.example/watch?v=1"
	if _, err := Validate(f); err != nil {
		t.Fatalf("video url: %v", err)
	}
}

func TestValidateLists(t *testing.T) {
	f := validForm()
	f.Ingredients = nil
	f.Steps = nil
	_, err := Validate(f)
	fields := fieldErrors(t, err)
	if fields["ingredients"] != "at least one ingredient required" || fields["steps"] != "at least one step required" {
		t.Fatalf("fields = %v", fields)
	}

	f = validForm()
	f.Ingredients = []picker.Value{
		{Quantity: "1", Unit: "g"},
		{Element: &flour, Unit: "g"},
		{Element: &flour, Quantity: "1"},
		{Element: &flour, Quantity: "lots", Unit: "g"},
		{Element: &flour, Quantity: "0.25", Unit: "kg"},
	}
	f.Steps = []string{"Mix", "Bake it well"}
	_, err = Validate(f)
	fields = fieldErrors(t, err)
	for _, k := range []string{"ingredients[0]", "ingredients[1]", "ingredients[2]", "ingredients[3]", "steps[0]"} {
		if fields[k] == "" {
			t.Errorf("missing %s error in %v", k, fields)
		}
	}
	if fields["ingredients[4]"] != "" || fields["steps[1]"] != "" {
		t.Fatalf("valid entries flagged: %v", fields)
	}
}

func TestNumberStepsFollowsListOrder(t *testing.T) {
	got := NumberSteps([]string{"Mix", "Bake", "Cool"})
	for i, want := range []string{"Mix", "Bake", "Cool"} {
		if got[i].StepNumber != i+1 || got[i].Description != want {
			t.Fatalf("steps = %+v", got)
		}
	}
}

func TestSubmitOrderAndPayload(t *testing.T) {
	b := &fakeBackend{}
	c := New(b, signedIn)
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }
	c.open = func(string) (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("png-bytes")), nil }

	f := validForm()
	f.ImagePath = "/photos/Cover.PNG"
	rec, err := c.Submit(context.Background(), f)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	id := b.recipeID.Hex()
	want := []string{"upload", "recipe", "ingredients:" + id, "instructions:" + id}
	if strings.Join(b.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", b.calls)
	}
	if b.upload.bucket != "recipe-images" || b.upload.name != "1700000000123.png" || b.upload.contentType != "image/jpeg" || b.upload.body != "png-bytes" {
		t.Fatalf("upload = %+v", b.upload)
	}
	if rec.Image != "1700000000123.png" || b.recipe.PrepTime != 10 || b.recipe.Servings != 4 {
		t.Fatalf("recipe = %+v input = %+v", rec, b.recipe)
	}
	if b.ingredients[0].ElementID != flour.ID.Hex() || b.ingredients[0].Quantity != 500 {
		t.Fatalf("ingredients = %+v", b.ingredients)
	}
	if len(b.instructions) != 3 || b.instructions[2].StepNumber != 3 || b.instructions[2].Description != "Cool on a rack" {
		t.Fatalf("instructions = %+v", b.instructions)
	}
}

func TestSubmitWithoutImageSendsEmptyName(t *testing.T) {
	b := &fakeBackend{}
	if _, err := New(b, signedIn).Submit(context.Background(), validForm()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if b.calls[0] != "recipe" || b.recipe.Image != "" {
		t.Fatalf("calls = %v image = %q", b.calls, b.recipe.Image)
	}
}

func TestSubmitRequiresSession(t *testing.T) {
	b := &fakeBackend{}
	_, err := New(b, fixedSession{}).Submit(context.Background(), validForm())
	if !errors.Is(err, ErrNotAuthenticated) || len(b.calls) != 0 {
		t.Fatalf("err = %v calls = %v", err, b.calls)
	}
}

func TestInvalidFormMakesNoCalls(t *testing.T) {
	b := &fakeBackend{}
	f := validForm()
	f.Title = ""
	_, err := New(b, signedIn).Submit(context.Background(), f)
	fieldErrors(t, err)
	if len(b.calls) != 0 {
		t.Fatalf("calls = %v", b.calls)
	}
}

func TestFailedInsertRollsBackRecipe(t *testing.T) {
	backendErr := &gateway.APIError{Status: 500, Message: "Failed to add instructions"}
	b := &fakeBackend{failInstructions: backendErr}
	_, err := New(b, signedIn).Submit(context.Background(), validForm())
	if !errors.Is(err, backendErr) {
		t.Fatalf("err = %v", err)
	}
	if Message(err) != "Failed to add instructions" {
		t.Fatalf("message = %q", Message(err))
	}
	if last := b.calls[len(b.calls)-1]; last != "delete:"+b.recipeID.Hex() {
		t.Fatalf("calls = %v", b.calls)
	}

	b = &fakeBackend{failIngredients: errors.New("boom"), failDelete: errors.New("offline")}
	_, err = New(b, signedIn).Submit(context.Background(), validForm())
	if err == nil || !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), "rollback") {
		t.Fatalf("err = %v", err)
	}
	for _, call := range b.calls {
		if strings.HasPrefix(call, "instructions") {
			t.Fatalf("instructions inserted after ingredient failure: %v", b.calls)
		}
	}
}

func TestSecondSubmitWhileBusy(t *testing.T) {
	b := &fakeBackend{block: make(chan struct{})}
	c := New(b, signedIn)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), validForm())
		done <- err
	}()
	for !c.Busy() {
		time.Sleep(time.Millisecond)
	}
	if _, err := c.Submit(context.Background(), validForm()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second submit err = %v", err)
	}
	close(b.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if c.Busy() {
		t.Fatal("still busy")
	}
}

func TestImageName(t *testing.T) {
	at := time.UnixMilli(42)
	if got := ImageName("a/b/pic.JPEG", at); got != "42.jpeg" {
		t.Fatalf("name = %s", got)
	}
	if got := ImageName("noext", at); got != "42.jpg" {
		t.Fatalf("name = %s", got)
	}
}
