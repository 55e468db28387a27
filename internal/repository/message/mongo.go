package message

import (
	"context"
	"strings"

	"wallet_chat/internal/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	MongoRepo struct {
		collection *mongo.Collection
	}

	// messageDoc adds an insertion-ordered _id and lowercase participant
	// keys used for case-insensitive lookups.
	messageDoc struct {
		OID           primitive.ObjectID `bson:"_id,omitempty"`
		model.Message `bson:",inline"`
		FromKey       string `bson:"from_key"`
		ToKey         string `bson:"to_key"`
	}
)

var logOrder = bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		collection: db.Collection("messages"),
	}
}

// EnsureIndexes creates the lookup indexes used by the queries below.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "from_key", Value: 1}}},
		{Keys: bson.D{{Key: "to_key", Value: 1}}},
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return errors.Wrap(err, "messageRepo.EnsureIndexes")
	}
	return nil
}

func (r *MongoRepo) Append(ctx context.Context, m *model.Message) error {
	doc := messageDoc{
		Message: *m,
		FromKey: strings.ToLower(m.From),
		ToKey:   strings.ToLower(m.To),
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return errors.Wrap(err, "messageRepo.Append")
	}
	return nil
}

func (r *MongoRepo) ByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
	}
	return r.find(ctx, filter)
}

func (r *MongoRepo) ByParticipant(ctx context.Context, identity string) ([]*model.Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"from_key": identity},
			bson.M{"to_key": identity},
		},
	}
	return r.find(ctx, filter)
}

func (r *MongoRepo) MarkRead(ctx context.Context, conversationID, recipient string) (int, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"to_key":          strings.ToLower(recipient),
		"read":            false,
	}
	update := bson.M{
		"$set": bson.M{"read": true},
	}

	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, errors.Wrap(err, "messageRepo.MarkRead")
	}
	return int(res.ModifiedCount), nil
}

func (r *MongoRepo) find(ctx context.Context, filter bson.M) ([]*model.Message, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(logOrder))
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.Find")
	}

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "messageRepo.Find.Decode")
	}

	res := make([]*model.Message, 0, len(docs))
	for i := range docs {
		m := docs[i].Message
		res = append(res, &m)
	}
	return res, nil
}
