package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DB holds the mongo client and the collections the backend works with.
type DB struct {
	Client *mongo.Client

	ElementsCollection     *mongo.Collection
	IngredientsCollection  *mongo.Collection
	InstructionsCollection *mongo.Collection
	RecipeCollection       *mongo.Collection
	UserCollection         *mongo.Collection
}

// Connect dials MongoDB, pings the deployment and wires up collections.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Println("✅ Pinged your deployment. You successfully connected to MongoDB!")

	d := client.Database(database)
	return &DB{
		Client:                 client,
		ElementsCollection:     d.Collection("elements"),
		IngredientsCollection:  d.Collection("ingredients"),
		InstructionsCollection: d.Collection("instructions"),
		RecipeCollection:       d.Collection("recipes"),
		UserCollection:         d.Collection("users"),
	}, nil
}

// CreateIndexes makes sure the lookups the handlers do are indexed.
func (d *DB) CreateIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	idx := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{d.RecipeCollection, mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}}},
		{d.IngredientsCollection, mongo.IndexModel{Keys: bson.D{{Key: "recipe_id", Value: 1}}}},
		{d.InstructionsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "recipe_id", Value: 1}, {Key: "step_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{d.ElementsCollection, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}}},
		{d.UserCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}

	for _, i := range idx {
		if _, err := i.coll.Indexes().CreateOne(ctx, i.model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.coll.Name(), err)
		}
	}
	return nil
}

func (d *DB) Disconnect(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// OptionsFindLatest sorts newest first on created_at; limit 0 means no limit.
func OptionsFindLatest(limit int64) *options.FindOptions {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}
