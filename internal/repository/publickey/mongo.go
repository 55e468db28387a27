package publickey

import (
	"context"
	"time"

	"wallet_chat/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	MongoRepo struct {
		collection *mongo.Collection
	}
)

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		collection: db.Collection("public_keys"),
	}
}

func (r *MongoRepo) Upsert(ctx context.Context, identity, publicKey string) error {
	filter := bson.M{
		"_id": identity,
	}
	update := bson.M{
		"$set": bson.M{
			"public_key":    publicKey,
			"registered_at": time.Now(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "publicKeyRepo.Upsert")
	}
	return nil
}

func (r *MongoRepo) GetByIdentity(ctx context.Context, identity string) (*model.RegisteredPublicKey, error) {
	filter := bson.M{
		"_id": identity,
	}

	var key model.RegisteredPublicKey
	err := r.collection.FindOne(ctx, filter).Decode(&key)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "publicKeyRepo.GetByIdentity")
	}

	return &key, nil
}
