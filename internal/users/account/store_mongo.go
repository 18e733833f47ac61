// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/constants"
	"github.com/taibuivan/murmur/internal/platform/dberr"
)

// MongoRepository implements [Repository] on a MongoDB "users" collection.
//
// Sessions are embedded in the user document so every operation is a
// single-document update and therefore atomic.
type MongoRepository struct {
	users *mongo.Collection
}

// NewMongoRepository binds the identity store to a database.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{users: database.Collection(constants.CollectionUsers)}
}

// EnsureIndexes creates the unique email index the store relies on for Conflict detection.
func (repository *MongoRepository) EnsureIndexes(context context.Context) error {
	_, err := repository.users.Indexes().CreateOne(context, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo_users_index_failed: %w", err)
	}
	return nil
}

// FindByEmail implements [Repository].
func (repository *MongoRepository) FindByEmail(context context.Context, email string) (*User, error) {
	user := &User{}
	opts := options.FindOne().SetProjection(bson.M{"sessions": 0})

	if err := repository.users.FindOne(context, bson.M{"email": email}, opts).Decode(user); err != nil {
		return nil, dberr.Wrap(err, "User")
	}
	return user, nil
}

// Create implements [Repository].
func (repository *MongoRepository) Create(context context.Context, user *User) error {
	document := user.clone()
	if document.Sessions == nil {
		document.Sessions = []Session{}
	}

	if _, err := repository.users.InsertOne(context, document); err != nil {
		return dberr.Wrap(err, "User")
	}
	return nil
}

// Rename implements [Repository].
func (repository *MongoRepository) Rename(context context.Context, email, displayName, initials string) error {
	result, err := repository.users.UpdateOne(context,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"display_name": displayName, "initials": initials}},
	)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// AppendSession implements [Repository].
func (repository *MongoRepository) AppendSession(context context.Context, email string, session Session) error {
	result, err := repository.users.UpdateOne(context,
		bson.M{"email": email},
		bson.M{"$push": bson.M{"sessions": session}},
	)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// FindSession implements [Repository].
func (repository *MongoRepository) FindSession(context context.Context, email, tokenHash string) (*Session, error) {
	user := &User{}
	opts := options.FindOne().SetProjection(bson.M{"sessions.$": 1})

	err := repository.users.FindOne(context,
		bson.M{"email": email, "sessions.token": tokenHash},
		opts,
	).Decode(user)
	if err != nil {
		return nil, dberr.Wrap(err, "Session")
	}
	if len(user.Sessions) == 0 {
		return nil, apperr.NotFound("Session")
	}

	session := user.Sessions[0]
	return &session, nil
}

// TouchSession implements [Repository].
//
// $elemMatch pins the positional operator to the element that passed the
// freshness check, so only that session's last_used moves.
func (repository *MongoRepository) TouchSession(context context.Context, email, tokenHash string, now, notBefore time.Time) (bool, error) {
	result, err := repository.users.UpdateOne(context,
		bson.M{
			"email": email,
			"sessions": bson.M{"$elemMatch": bson.M{
				"token":     tokenHash,
				"last_used": bson.M{"$gte": notBefore},
			}},
		},
		bson.M{"$set": bson.M{"sessions.$.last_used": now}},
	)
	if err != nil {
		return false, dberr.Wrap(err, "Session")
	}
	return result.MatchedCount == 1, nil
}

// RemoveSession implements [Repository].
func (repository *MongoRepository) RemoveSession(context context.Context, email, tokenHash string) error {
	_, err := repository.users.UpdateOne(context,
		bson.M{"email": email},
		bson.M{"$pull": bson.M{"sessions": bson.M{"token": tokenHash}}},
	)
	if err != nil {
		return dberr.Wrap(err, "Session")
	}
	return nil
}

// PruneSessions implements [Repository]. The count is the number of user documents modified.
func (repository *MongoRepository) PruneSessions(context context.Context, email string, threshold time.Time) (int64, error) {
	filter := bson.M{}
	if email != "" {
		filter["email"] = email
	}

	result, err := repository.users.UpdateMany(context, filter,
		bson.M{"$pull": bson.M{"sessions": bson.M{"last_used": bson.M{"$lt": threshold}}}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongo_session_repo_prune_failed: %w", dberr.Wrap(err, "Session"))
	}
	return result.ModifiedCount, nil
}
