package recipes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/GabrielGBraga/mise/db"
	"github.com/GabrielGBraga/mise/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("recipe not found")

type Store interface {
	List(ctx context.Context, search string) ([]models.Recipe, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Recipe, error)
	Insert(ctx context.Context, rec models.Recipe) (models.Recipe, error)
	// Delete removes the recipe and every ingredient and instruction row under it.
	Delete(ctx context.Context, id primitive.ObjectID) error

	InsertIngredients(ctx context.Context, ings []models.Ingredient) error
	IngredientLines(ctx context.Context, recipeID primitive.ObjectID) ([]models.IngredientLine, error)
	InsertInstructions(ctx context.Context, steps []models.Instruction) error
	Instructions(ctx context.Context, recipeID primitive.ObjectID) ([]models.Instruction, error)

	// CountElements reports how many of ids exist in the catalog.
	CountElements(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

type MongoStore struct {
	db *db.DB
}

func NewMongoStore(d *db.DB) *MongoStore {
	return &MongoStore{db: d}
}

// TitleFilter restricts to titles containing search, case-insensitively.
func TitleFilter(search string) bson.M {
	search = strings.TrimSpace(search)
	if search == "" {
		return bson.M{}
	}
	return bson.M{"title": bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}}}
}

func (s *MongoStore) List(ctx context.Context, search string) ([]models.Recipe, error) {
	cursor, err := s.db.RecipeCollection.Find(ctx, TitleFilter(search), db.OptionsFindLatest(0))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	recipes := make([]models.Recipe, 0)
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *MongoStore) Get(ctx context.Context, id primitive.ObjectID) (models.Recipe, error) {
	var rec models.Recipe
	err := s.db.RecipeCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Recipe{}, ErrNotFound
	}
	return rec, err
}

func (s *MongoStore) Insert(ctx context.Context, rec models.Recipe) (models.Recipe, error) {
	res, err := s.db.RecipeCollection.InsertOne(ctx, rec)
	if err != nil {
		return models.Recipe{}, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return models.Recipe{}, fmt.Errorf("unexpected inserted id %T", res.InsertedID)
	}
	rec.ID = id
	return rec, nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.db.IngredientsCollection.DeleteMany(ctx, bson.M{"recipe_id": id}); err != nil {
		return fmt.Errorf("delete ingredients: %w", err)
	}
	if _, err := s.db.InstructionsCollection.DeleteMany(ctx, bson.M{"recipe_id": id}); err != nil {
		return fmt.Errorf("delete instructions: %w", err)
	}
	res, err := s.db.RecipeCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) InsertIngredients(ctx context.Context, ings []models.Ingredient) error {
	docs := make([]interface{}, len(ings))
	for i := range ings {
		docs[i] = ings[i]
	}
	_, err := s.db.IngredientsCollection.InsertMany(ctx, docs)
	return err
}

// IngredientLines joins each ingredient with its element's name.
func (s *MongoStore) IngredientLines(ctx context.Context, recipeID primitive.ObjectID) ([]models.IngredientLine, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipe_id": recipeID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         s.db.ElementsCollection.Name(),
			"localField":   "element_id",
			"foreignField": "_id",
			"as":           "element",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$element", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$addFields", Value: bson.M{"element_name": bson.M{"$ifNull": bson.A{"$element.name", ""}}}}},
		{{Key: "$project", Value: bson.M{"element": 0}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := s.db.IngredientsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	lines := make([]models.IngredientLine, 0)
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *MongoStore) InsertInstructions(ctx context.Context, steps []models.Instruction) error {
	docs := make([]interface{}, len(steps))
	for i := range steps {
		docs[i] = steps[i]
	}
	_, err := s.db.InstructionsCollection.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) Instructions(ctx context.Context, recipeID primitive.ObjectID) ([]models.Instruction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "step_number", Value: 1}})
	cursor, err := s.db.InstructionsCollection.Find(ctx, bson.M{"recipe_id": recipeID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	steps := make([]models.Instruction, 0)
	if err := cursor.All(ctx, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *MongoStore) CountElements(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	return s.db.ElementsCollection.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
}
