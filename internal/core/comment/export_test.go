// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

// NewMongoRepositoryOver runs the append loop against threads instead of a collection.
func NewMongoRepositoryOver(threads threadCollection, opts MongoOptions) *MongoRepository {
	return &MongoRepository{threads: threads, options: opts.withDefaults()}
}
