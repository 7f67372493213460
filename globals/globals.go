package globals

type ContextKey string

const (
	UserIDKey    ContextKey = "userId"
	EmailKey     ContextKey = "email"
	RequestIDKey ContextKey = "requestId"
)

const RecipeImagesBucket = "recipe-images"
