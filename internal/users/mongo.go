package users

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDatabase   = "runmonkey"
	mongoCollection = "users"
)

type userDocument struct {
	Username     string `bson:"_id"`
	PasswordHash string `bson:"password_hash"`
}

// MongoStore keeps one document per user with the username as _id.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		users:  client.Database(mongoDatabase).Collection(mongoCollection),
	}, nil
}

func (m *MongoStore) GetHash(ctx context.Context, username string) (string, error) {
	var doc userDocument
	err := m.users.FindOne(ctx, bson.M{"_id": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return doc.PasswordHash, nil
}

func (m *MongoStore) Insert(ctx context.Context, username, hash string) error {
	_, err := m.users.InsertOne(ctx, userDocument{Username: username, PasswordHash: hash})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, username string) error {
	res, err := m.users.DeleteOne(ctx, bson.M{"_id": username})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Username
	}
	return names, nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}
