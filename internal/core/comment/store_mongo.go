// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/constants"
	"github.com/taibuivan/murmur/internal/platform/dberr"
)

// errContended marks an append that lost the compare-and-swap to a concurrent writer.
var errContended = errors.New("comment: location counter contended")

// locationDocument is one thread: the counter and its embedded comments.
type locationDocument struct {
	Location     string    `bson:"location"`
	MaxCommentID int64     `bson:"max_comment_id"`
	Comments     []Comment `bson:"comments"`
}

// MongoOptions tunes the optimistic append loop.
type MongoOptions struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (opts MongoOptions) withDefaults() MongoOptions {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 16
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 100 * time.Millisecond
	}
	return opts
}

// threadCollection holds the three single-document operations of an append.
type threadCollection interface {
	// MaxCommentID returns the counter of location, or 0 without a document.
	MaxCommentID(ctx context.Context, location string) (int64, error)

	// InsertFirst creates the document of a location holding its first comment.
	InsertFirst(ctx context.Context, first Comment) error

	// CompareAndPush appends next only while the counter still equals expected.
	CompareAndPush(ctx context.Context, expected int64, next Comment) (bool, error)
}

// MongoRepository implements [Repository] with one document per location.
//
// MongoDB has no increment-and-append that also returns the new element, so
// Append reads the counter and then updates conditionally on that value,
// retrying with exponential backoff when another writer got there first.
type MongoRepository struct {
	collection *mongo.Collection
	threads    threadCollection
	options    MongoOptions
}

// NewMongoRepository binds the comment store to a database.
func NewMongoRepository(database *mongo.Database, opts MongoOptions) *MongoRepository {
	collection := database.Collection(constants.CollectionComments)
	return &MongoRepository{
		collection: collection,
		threads:    mongoThreads{collection: collection},
		options:    opts.withDefaults(),
	}
}

// EnsureIndexes creates the unique location index that serializes first appends.
func (repository *MongoRepository) EnsureIndexes(context context.Context) error {
	_, err := repository.collection.Indexes().CreateOne(context, mongo.IndexModel{
		Keys:    bson.D{{Key: "location", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo_comments_index_failed: %w", err)
	}
	return nil
}

// Append implements [Repository] with a compare-and-swap on max_comment_id.
func (repository *MongoRepository) Append(ctx context.Context, draft *Comment) (*Comment, error) {
	backoff := retry.NewExponential(repository.options.BaseDelay)
	backoff = retry.WithJitterPercent(25, backoff)
	backoff = retry.WithCappedDuration(repository.options.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(repository.options.MaxRetries, backoff)

	var stored Comment
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		current, err := repository.threads.MaxCommentID(ctx, draft.Location)
		if err != nil {
			return dberr.Wrap(err, "Comment")
		}

		stored = *draft
		stored.ID = current + 1

		// First comment of the location: the unique index decides the winner
		if current == 0 {
			err := repository.threads.InsertFirst(ctx, stored)
			if mongo.IsDuplicateKeyError(err) {
				return retry.RetryableError(errContended)
			}
			return dberr.Wrap(err, "Comment")
		}

		swapped, err := repository.threads.CompareAndPush(ctx, current, stored)
		if err != nil {
			return dberr.Wrap(err, "Comment")
		}
		if !swapped {
			return retry.RetryableError(errContended)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errContended) {
			return nil, fmt.Errorf("mongo_comment_repo_append_contended: %w", apperr.StoreUnavailable(err))
		}
		return nil, fmt.Errorf("mongo_comment_repo_append_failed: %w", err)
	}

	return &stored, nil
}

// Range implements [Repository] by unwinding the thread and filtering on id.
func (repository *MongoRepository) Range(context context.Context, location string, from, to int64, order Order) ([]*Comment, error) {
	direction := 1
	if order == Descending {
		direction = -1
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "location", Value: location}}}},
		{{Key: "$unwind", Value: "$comments"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$comments"}}}},
		{{Key: "$match", Value: bson.D{{Key: "id", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lt", Value: to},
		}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "id", Value: direction}}}},
	}

	cursor, err := repository.collection.Aggregate(context, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo_comment_repo_range_failed: %w", dberr.Wrap(err, "Comment"))
	}

	comments := []*Comment{}
	if err := cursor.All(context, &comments); err != nil {
		return nil, fmt.Errorf("mongo_comment_repo_decode_failed: %w", dberr.Wrap(err, "Comment"))
	}

	return comments, nil
}

// Count implements [Repository].
func (repository *MongoRepository) Count(context context.Context, location string) (int64, error) {
	count, err := repository.threads.MaxCommentID(context, location)
	if err != nil {
		return 0, dberr.Wrap(err, "Comment")
	}
	return count, nil
}

// mongoThreads runs the append operations against the comments collection.
type mongoThreads struct {
	collection *mongo.Collection
}

func (threads mongoThreads) MaxCommentID(context context.Context, location string) (int64, error) {
	var thread locationDocument
	opts := options.FindOne().SetProjection(bson.M{"max_comment_id": 1})

	err := threads.collection.FindOne(context, bson.M{"location": location}, opts).Decode(&thread)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return thread.MaxCommentID, nil
}

func (threads mongoThreads) InsertFirst(context context.Context, first Comment) error {
	_, err := threads.collection.InsertOne(context, locationDocument{
		Location:     first.Location,
		MaxCommentID: first.ID,
		Comments:     []Comment{first},
	})
	return err
}

func (threads mongoThreads) CompareAndPush(context context.Context, expected int64, next Comment) (bool, error) {
	result, err := threads.collection.UpdateOne(context,
		bson.M{"location": next.Location, "max_comment_id": expected},
		bson.M{
			"$set":  bson.M{"max_comment_id": next.ID},
			"$push": bson.M{"comments": next},
		},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}
