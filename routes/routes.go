package routes

import (
	"fmt"
	"net/http"

	"github.com/GabrielGBraga/mise/auth"
	"github.com/GabrielGBraga/mise/elements"
	"github.com/GabrielGBraga/mise/middleware"
	"github.com/GabrielGBraga/mise/ratelim"
	"github.com/GabrielGBraga/mise/recipes"
	"github.com/GabrielGBraga/mise/storage"
	"github.com/julienschmidt/httprouter"
)

// Deps is everything the route table hands out to handlers.
type Deps struct {
	Auth        *middleware.Auth
	RateLimiter *ratelim.RateLimiter
	AuthHandler *auth.Handler
	Feed        auth.Subscriber
	Elements    *elements.Handler
	Recipes     *recipes.Handler
	Storage     *storage.Store
}

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// New builds the router with every route group registered.
func New(d Deps) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	AddAuthRoutes(router, d)
	AddSessionFeedRoutes(router, d)
	AddElementRoutes(router, d)
	AddRecipeRoutes(router, d)
	AddStorageRoutes(router, d)
	AddStaticRoutes(router, d.Storage)
	return router
}

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/v1/auth/register", d.RateLimiter.Limit(d.AuthHandler.Register))
	router.POST("/api/v1/auth/login", d.RateLimiter.Limit(d.AuthHandler.Login))
	router.POST("/api/v1/auth/logout", d.Auth.Authenticate(d.AuthHandler.Logout))
	router.POST("/api/v1/auth/token/refresh", d.RateLimiter.Limit(d.Auth.Authenticate(d.AuthHandler.RefreshToken)))
	router.GET("/api/v1/auth/session", d.Auth.Authenticate(d.AuthHandler.GetSession))
}

func AddSessionFeedRoutes(router *httprouter.Router, d Deps) {
	router.GET("/ws/session", d.Auth.Authenticate(auth.SessionFeed(d.Feed)))
}

func AddElementRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/v1/elements", d.Elements.SearchElements)
	router.GET("/api/v1/elements/element/:id", d.Elements.GetElement)
}

func AddRecipeRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/v1/recipes", d.Auth.OptionalAuth(d.Recipes.GetRecipes))
	router.POST("/api/v1/recipes", d.Auth.Authenticate(d.Recipes.CreateRecipe))
	router.GET("/api/v1/recipes/recipe/:id", d.Auth.OptionalAuth(d.Recipes.GetRecipe))
	router.DELETE("/api/v1/recipes/recipe/:id", d.Auth.Authenticate(d.Recipes.DeleteRecipe))

	router.GET("/api/v1/recipes/recipe/:id/ingredients", d.Auth.OptionalAuth(d.Recipes.GetIngredients))
	router.POST("/api/v1/recipes/recipe/:id/ingredients", d.Auth.Authenticate(d.Recipes.AddIngredients))
	router.GET("/api/v1/recipes/recipe/:id/instructions", d.Auth.OptionalAuth(d.Recipes.GetInstructions))
	router.POST("/api/v1/recipes/recipe/:id/instructions", d.Auth.Authenticate(d.Recipes.AddInstructions))
}

func AddStorageRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/v1/storage/:bucket", d.Auth.Authenticate(d.Storage.Upload))
}

func AddStaticRoutes(router *httprouter.Router, s *storage.Store) {
	for _, bucket := range s.Buckets() {
		router.ServeFiles("/static/"+bucket+"/*filepath", http.Dir(s.Dir(bucket)))
	}
}
