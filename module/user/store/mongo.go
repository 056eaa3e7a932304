package store

import (
	"context"
	"time"

	"DMChat/data/database/mgo/mongoutil"
	"DMChat/module/user/model"
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
	return &MongoStore{coll: db.Collection(model.UserTableName)}
}

// EnsureIndexes makes email and username+discriminator unique.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return mongoutil.EnsureIndexes(ctx, s.coll,
		mongoutil.Index(true, "email"),
		mongoutil.Index(true, "username", "discriminator"),
	)
}

func (s *MongoStore) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	u.ID = primitive.NewObjectIDFromTimestamp(now).Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		u.ID = ""
		if mongoutil.IsDuplicateKey(err) {
			return errs.ErrRecordExist.WrapMsg("duplicate user", "email", u.Email, "tag", u.Tag())
		}
		return errs.WrapMsg(err, "insert user")
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*model.User, error) {
	var u model.User
	err := s.coll.FindOne(ctx, filter, opts...).Decode(&u)
	if mongoutil.IsNotFound(err) {
		return nil, errs.ErrUserNotFound.Wrap()
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user")
	}
	return &u, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"username": username}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *MongoStore) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errs.WrapMsg(err, "count users")
	}
	return n > 0, nil
}

func (s *MongoStore) TagExists(ctx context.Context, username, discriminator string) (bool, error) {
	return s.exists(ctx, bson.M{"username": username, "discriminator": discriminator})
}

func (s *MongoStore) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	return s.exists(ctx, bson.M{"username": username, "_id": bson.M{"$ne": exceptID}})
}

func (s *MongoStore) Update(ctx context.Context, id string, up model.Update) (*model.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if up.Username != nil {
		set["username"] = *up.Username
	}
	if up.Bio != nil {
		set["bio"] = *up.Bio
	}
	if up.ProfilePicture != nil {
		set["profilePicture"] = *up.ProfilePicture
	}
	if up.Status != nil {
		set["status"] = *up.Status
	}
	if up.LastLogin != nil {
		set["lastLogin"] = up.LastLogin.UTC()
	}
	var u model.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if mongoutil.IsNotFound(err) {
		return nil, errs.ErrUserNotFound.WrapMsg("update", "id", id)
	}
	if err != nil {
		if mongoutil.IsDuplicateKey(err) {
			return nil, errs.ErrUsernameTaken.Wrap()
		}
		return nil, errs.WrapMsg(err, "update user", "id", id)
	}
	return &u, nil
}

func (s *MongoStore) ListExcept(ctx context.Context, id string) ([]*model.User, error) {
	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$ne": id}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, errs.WrapMsg(err, "list users")
	}
	out := make([]*model.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	return out, nil
}
