// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taibuivan/murmur/internal/platform/constants"
	"github.com/taibuivan/murmur/internal/platform/dberr"
)

// MongoChallengeRepository implements [ChallengeRepository] on the verification queue collection.
type MongoChallengeRepository struct {
	queue *mongo.Collection
}

// NewMongoChallengeRepository binds the challenge store to a database.
func NewMongoChallengeRepository(database *mongo.Database) *MongoChallengeRepository {
	return &MongoChallengeRepository{queue: database.Collection(constants.CollectionVerification)}
}

// EnsureIndexes creates the unique email index and the created_at index used by the sweeper.
func (repository *MongoChallengeRepository) EnsureIndexes(context context.Context) error {
	_, err := repository.queue.Indexes().CreateMany(context, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo_verification_index_failed: %w", err)
	}
	return nil
}

// Upsert implements [ChallengeRepository] with a replace-or-insert on email.
func (repository *MongoChallengeRepository) Upsert(context context.Context, challenge *Challenge) error {
	_, err := repository.queue.ReplaceOne(context,
		bson.M{"email": challenge.Email},
		challenge,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo_challenge_repo_upsert_failed: %w", dberr.Wrap(err, "Verification challenge"))
	}
	return nil
}

// Find implements [ChallengeRepository].
func (repository *MongoChallengeRepository) Find(context context.Context, email string) (*Challenge, error) {
	challenge := &Challenge{}
	if err := repository.queue.FindOne(context, bson.M{"email": email}).Decode(challenge); err != nil {
		return nil, dberr.Wrap(err, "Verification challenge")
	}
	return challenge, nil
}

// DeleteIfMatch implements [ChallengeRepository].
func (repository *MongoChallengeRepository) DeleteIfMatch(context context.Context, email, codeHash string) (bool, error) {
	result, err := repository.queue.DeleteOne(context, bson.M{"email": email, "code": codeHash})
	if err != nil {
		return false, dberr.Wrap(err, "Verification challenge")
	}
	return result.DeletedCount == 1, nil
}

// DeleteOlderThan implements [ChallengeRepository].
func (repository *MongoChallengeRepository) DeleteOlderThan(context context.Context, threshold time.Time) (int64, error) {
	result, err := repository.queue.DeleteMany(context, bson.M{"created_at": bson.M{"$lt": threshold}})
	if err != nil {
		return 0, fmt.Errorf("mongo_challenge_repo_purge_failed: %w", dberr.Wrap(err, "Verification challenge"))
	}
	return result.DeletedCount, nil
}
