package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lborres/storefront/core"
)

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	res, err := a.users.InsertOne(ctx, userFromCore(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.ErrUserExists
		}
		return err
	}

	user.ID = insertedID(res)
	return nil
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	if err := a.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err, core.ErrUserNotFound)
	}
	return doc.toCore(), nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var doc userDoc
	if err := a.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return nil, notFound(err, core.ErrUserNotFound)
	}
	return doc.toCore(), nil
}

func (a *Adapter) ListUsers(ctx context.Context) ([]*core.User, error) {
	cursor, err := a.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]*core.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toCore())
	}
	return users, nil
}

func (a *Adapter) UpdateUser(ctx context.Context, user *core.User) error {
	oid, err := objectID(user.ID)
	if err != nil {
		return err
	}

	user.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":      user.Name,
		"email":     user.Email,
		"password":  user.PasswordHash,
		"isAdmin":   user.IsAdmin,
		"isSeller":  user.IsSeller,
		"country":   user.Country,
		"age":       user.Age,
		"updatedAt": user.UpdatedAt,
	}}

	res, err := a.users.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.ErrUserExists
		}
		return err
	}
	if res.MatchedCount == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := a.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) CountUsers(ctx context.Context) (int, error) {
	n, err := a.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
