package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GabrielGBraga/mise/guard"
	"github.com/GabrielGBraga/mise/models"
	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig()
	if err != nil || cfg.Server != defaultServer || cfg.Session != nil {
		t.Fatalf("default config = %+v, %v", cfg, err)
	}

	cfg.Session = &models.Session{AccessToken: "tok", User: models.SessionUser{Email: "a@b.co"}}
	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := configPath()
	if info, err := os.Stat(path); err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("stat = %v, %v", info, err)
	}
	got, err := loadConfig()
	if err != nil || got.Session == nil || got.Session.AccessToken != "tok" {
		t.Fatalf("loaded = %+v, %v", got, err)
	}
}

type catalog []models.Element

func (c catalog) SearchElements(_ context.Context, q string, limit int) ([]models.Element, error) {
	n := len(c)
	if n > limit {
		n = limit
	}
	return c[:n], nil
}

func TestBuildFormPicksElements(t *testing.T) {
	cat := catalog{
		{ID: primitive.NewObjectID(), Name: "Brown Sugar", Units: []string{"g"}},
		{ID: primitive.NewObjectID(), Name: "Sugar", Units: []string{"g", "cup"}},
	}
	var f formFile
	if err := json.Unmarshal([]byte(`{
		"title": "Fudge", "prep_time": "15", "servings": "8", "difficulty": "Easy",
		"ingredients": [
			{"element": "sugar", "quantity": "200", "unit": "cup"},
			{"element": "s", "quantity": "1", "unit": ""}
		],
		"steps": ["Melt the sugar slowly"]
	}`), &f); err != nil {
		t.Fatal(err)
	}

	form, err := buildForm(context.Background(), cat, f, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	first := form.Ingredients[0]
	if first.Element == nil || first.Element.Name != "Sugar" || first.Unit != "cup" || first.Quantity != "200" {
		t.Fatalf("first = %+v", first)
	}
	// one-letter queries never search, so nothing gets picked
	if form.Ingredients[1].Element != nil {
		t.Fatalf("second = %+v", form.Ingredients[1])
	}

	f.Ingredients[0].Unit = "bar"
	if _, err := buildForm(context.Background(), cat, f, ""); err == nil {
		t.Fatal("unknown unit accepted")
	}
}

func runWithRoute(t *testing.T, server string, route guard.Route) (bool, error) {
	t.Helper()
	ran := false
	cmd := &cli.Command{
		Name:  "mise",
		Flags: []cli.Flag{&cli.StringFlag{Name: "server"}},
		Action: withRoute(route, func(context.Context, *cli.Command, *app) error {
			ran = true
			return nil
		}),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := cmd.Run(ctx, []string{"mise", "--server", server})
	return ran, err
}

func TestGuardedCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	sess := models.Session{AccessToken: "good", User: models.SessionUser{ID: "u1", Email: "a@b.co"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/session" && r.Header.Get("Authorization") == "Bearer good" {
			json.NewEncoder(w).Encode(sess)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid or expired session"}`))
	}))
	defer srv.Close()

	if ran, err := runWithRoute(t, srv.URL, guard.Recipes); ran || !errors.Is(err, errSignedOut) {
		t.Fatalf("anonymous recipes: ran=%v err=%v", ran, err)
	}
	if ran, err := runWithRoute(t, srv.URL, guard.SignIn); !ran || err != nil {
		t.Fatalf("anonymous signin: ran=%v err=%v", ran, err)
	}

	if err := saveConfig(cliConfig{Server: srv.URL, Session: &sess}); err != nil {
		t.Fatal(err)
	}
	if ran, err := runWithRoute(t, srv.URL, guard.SignIn); ran || err != nil {
		t.Fatalf("signed-in signin: ran=%v err=%v", ran, err)
	}
	if ran, err := runWithRoute(t, srv.URL, guard.Recipes); !ran || err != nil {
		t.Fatalf("signed-in recipes: ran=%v err=%v", ran, err)
	}

	stale := sess
	stale.AccessToken = "revoked"
	if err := saveConfig(cliConfig{Server: srv.URL, Session: &stale}); err != nil {
		t.Fatal(err)
	}
	if ran, err := runWithRoute(t, srv.URL, guard.Recipes); ran || !errors.Is(err, errSignedOut) {
		t.Fatalf("revoked recipes: ran=%v err=%v", ran, err)
	}
	cfg, _ := loadConfig()
	if cfg.Session != nil {
		t.Fatalf("revoked session kept in %s", filepath.Base(mustPath(t)))
	}
}

func mustPath(t *testing.T) string {
	t.Helper()
	p, err := configPath()
	if err != nil {
		t.Fatal(err)
	}
	return p
}
