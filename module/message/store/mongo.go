package store

import (
	"context"
	"time"

	"DMChat/data/database/mgo/mongoutil"
	"DMChat/module/message/model"
	"DMChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(model.MessageTableName)}
}

// EnsureIndexes creates the conversation and unread lookup indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return mongoutil.EnsureIndexes(ctx, s.coll,
		mongoutil.Index(false, "sender", "receiver", "createdAt"),
		mongoutil.Index(false, "receiver", "isRead"),
	)
}

func (s *MongoStore) CreateMessage(ctx context.Context, senderID, receiverID, content string, attachments []model.Attachment) (*model.Message, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	m := &model.Message{
		ID:          primitive.NewObjectIDFromTimestamp(now).Hex(),
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		return nil, errs.WrapMsg(err, "insert message", "sender", senderID, "receiver", receiverID)
	}
	return m, nil
}

func (s *MongoStore) FindMessagesBetween(ctx context.Context, a, b string) ([]*model.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender": a, "receiver": b},
		bson.M{"sender": b, "receiver": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "find messages", "a", a, "b", b)
	}
	out := make([]*model.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode messages")
	}
	return out, nil
}

func (s *MongoStore) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"sender": senderID, "receiver": receiverID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, errs.WrapMsg(err, "mark read", "sender", senderID, "receiver", receiverID)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) CountUnread(ctx context.Context, senderID, receiverID string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"sender": senderID, "receiver": receiverID, "isRead": false})
	return n, errs.WrapMsg(err, "count unread")
}

func (s *MongoStore) UnreadBySender(ctx context.Context, receiverID string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"receiver": receiverID, "isRead": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$sender", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.WrapMsg(err, "aggregate unread", "receiver", receiverID)
	}
	var rows []struct {
		Sender string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.WrapMsg(err, "decode unread")
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Sender] = r.N
	}
	return out, nil
}
