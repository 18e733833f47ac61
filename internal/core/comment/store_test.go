// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taibuivan/murmur/internal/core/comment"
	"github.com/taibuivan/murmur/internal/platform/apperr"
)

var postedAt = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func draft(loc, body string) *comment.Comment {
	return &comment.Comment{
		Location:    loc,
		Email:       alice.Email,
		DisplayName: alice.DisplayName,
		Color:       alice.Color,
		Initials:    alice.Initials,
		Body:        body,
		PostedAt:    postedAt,
	}
}

// appendConcurrently races writers directly against repository and checks that
// every location holds exactly the ids 1..n.
func appendConcurrently(t *testing.T, repository comment.Repository) {
	t.Helper()

	const writers, perWriter = 16, 25
	locations := []string{"a.example.com/x", "b.example.com/y"}

	var wg sync.WaitGroup
	for writer := 0; writer < writers; writer++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for index := 0; index < perWriter; index++ {
				_, err := repository.Append(context.Background(), draft(locations[(writer+index)%len(locations)], "race"))
				assert.NoError(t, err)
			}
		}(writer)
	}
	wg.Wait()

	var total int64
	for _, loc := range locations {
		count, err := repository.Count(context.Background(), loc)
		require.NoError(t, err)
		total += count

		stored, err := repository.Range(context.Background(), loc, 1, count+1, comment.Ascending)
		require.NoError(t, err)
		require.Len(t, stored, int(count))
		for index, c := range stored {
			assert.Equal(t, int64(index+1), c.ID)
		}
	}
	assert.Equal(t, int64(writers*perWriter), total)
}

/*
TestMemoryRepository_ConcurrentAppendsAreGapless hands out every id exactly once
without any caller-side locking.
*/
func TestMemoryRepository_ConcurrentAppendsAreGapless(t *testing.T) {
	appendConcurrently(t, comment.NewMemoryRepository())
}

// # MongoDB append loop

var duplicateKey = mongo.WriteException{
	WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error collection: murmur.comments"}},
}

// documentThreads keeps location documents in memory with the single-document
// atomicity of a MongoDB server.
type documentThreads struct {
	mu       sync.Mutex
	counters map[string]int64
	comments map[string][]comment.Comment

	// competitorFirst makes the next InsertFirst lose to a concurrent writer.
	competitorFirst bool
	// lostSwaps makes that many CompareAndPush calls miss.
	lostSwaps int
	swapErr   error
	swaps     atomic.Int64
}

func newDocumentThreads() *documentThreads {
	return &documentThreads{counters: make(map[string]int64), comments: make(map[string][]comment.Comment)}
}

func (threads *documentThreads) seed(loc string, count int) {
	for index := 1; index <= count; index++ {
		stored := *draft(loc, "seed")
		stored.ID = int64(index)
		threads.comments[loc] = append(threads.comments[loc], stored)
	}
	threads.counters[loc] = int64(count)
}

func (threads *documentThreads) MaxCommentID(_ context.Context, loc string) (int64, error) {
	threads.mu.Lock()
	defer threads.mu.Unlock()
	return threads.counters[loc], nil
}

func (threads *documentThreads) InsertFirst(_ context.Context, first comment.Comment) error {
	threads.mu.Lock()
	defer threads.mu.Unlock()

	if threads.competitorFirst {
		threads.competitorFirst = false
		competitor := first
		competitor.Body = "competitor"
		threads.counters[first.Location] = 1
		threads.comments[first.Location] = []comment.Comment{competitor}
		return duplicateKey
	}
	if _, exists := threads.counters[first.Location]; exists {
		return duplicateKey
	}

	threads.counters[first.Location] = first.ID
	threads.comments[first.Location] = []comment.Comment{first}
	return nil
}

func (threads *documentThreads) CompareAndPush(_ context.Context, expected int64, next comment.Comment) (bool, error) {
	threads.swaps.Add(1)

	threads.mu.Lock()
	defer threads.mu.Unlock()

	if threads.swapErr != nil {
		return false, threads.swapErr
	}
	if threads.lostSwaps > 0 {
		threads.lostSwaps--
		return false, nil
	}
	if threads.counters[next.Location] != expected {
		return false, nil
	}

	threads.counters[next.Location] = next.ID
	threads.comments[next.Location] = append(threads.comments[next.Location], next)
	return true, nil
}

// casRepository reads ranges back from the fake documents.
type casRepository struct {
	*comment.MongoRepository
	threads *documentThreads
}

func (repository casRepository) Range(_ context.Context, loc string, from, to int64, _ comment.Order) ([]*comment.Comment, error) {
	repository.threads.mu.Lock()
	defer repository.threads.mu.Unlock()

	found := []*comment.Comment{}
	for index := range repository.threads.comments[loc] {
		if c := repository.threads.comments[loc][index]; c.ID >= from && c.ID < to {
			found = append(found, &c)
		}
	}
	return found, nil
}

var fastRetries = comment.MongoOptions{MaxRetries: 10000, BaseDelay: time.Microsecond, MaxDelay: 50 * time.Microsecond}

/*
TestMongoRepository_ConcurrentAppendsAreGapless drives the compare-and-swap loop
with racing writers, including the race for a location's first document.
*/
func TestMongoRepository_ConcurrentAppendsAreGapless(t *testing.T) {
	threads := newDocumentThreads()
	appendConcurrently(t, casRepository{
		MongoRepository: comment.NewMongoRepositoryOver(threads, fastRetries),
		threads:         threads,
	})
}

/*
TestMongoRepository_Append covers the lost-race retries and their exhaustion.
*/
func TestMongoRepository_Append(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(threads *documentThreads)
		options comment.MongoOptions
		wantID  int64
		wantErr string
	}{
		{
			name:    "first_comment",
			prepare: func(*documentThreads) {},
			options: fastRetries,
			wantID:  1,
		},
		{
			name:    "first_insert_lost_to_competitor",
			prepare: func(threads *documentThreads) { threads.competitorFirst = true },
			options: fastRetries,
			wantID:  2,
		},
		{
			name: "lost_swaps_are_retried",
			prepare: func(threads *documentThreads) {
				threads.seed(location, 3)
				threads.lostSwaps = 4
			},
			options: fastRetries,
			wantID:  4,
		},
		{
			name: "contention_exhausts_retries",
			prepare: func(threads *documentThreads) {
				threads.seed(location, 1)
				threads.lostSwaps = 1000
			},
			options: comment.MongoOptions{MaxRetries: 3, BaseDelay: time.Microsecond},
			wantErr: apperr.CodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threads := newDocumentThreads()
			tt.prepare(threads)
			repository := comment.NewMongoRepositoryOver(threads, tt.options)

			stored, err := repository.Append(context.Background(), draft(location, "hello"))
			if tt.wantErr != "" {
				assert.True(t, apperr.HasCode(err, tt.wantErr), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, stored.ID)
			assert.Equal(t, "hello", stored.Body)

			count, err := repository.Count(context.Background(), location)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, count)
		})
	}
}

/*
TestMongoRepository_AppendStoreFailure does not retry errors other than a lost race.
*/
func TestMongoRepository_AppendStoreFailure(t *testing.T) {
	threads := newDocumentThreads()
	threads.seed(location, 2)
	threads.swapErr = errors.New("server selection timeout")

	_, err := comment.NewMongoRepositoryOver(threads, fastRetries).Append(context.Background(), draft(location, "hello"))
	require.Error(t, err)
	assert.Equal(t, int64(1), threads.swaps.Load())
}

// # PostgreSQL counter transaction

const (
	counterQuery = `INSERT INTO murmur\.location AS l \(location, maxcommentid\) VALUES \(\$1, 1\)\s+ON CONFLICT \(location\) DO UPDATE SET maxcommentid = l\.maxcommentid \+ 1\s+RETURNING l\.maxcommentid`
	insertQuery  = `INSERT INTO murmur\.comment \(location, id, email, displayname, color, initials, body, postedat\)`
	countQuery   = `SELECT maxcommentid FROM murmur\.location WHERE location = \$1`
)

func newPostgresMock(t *testing.T) (*comment.PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return comment.NewPostgresRepository(mock), mock
}

/*
TestPostgresRepository_Append claims the id and inserts the comment in one transaction.
*/
func TestPostgresRepository_Append(t *testing.T) {
	repository, mock := newPostgresMock(t)
	posted := draft(location, "hello")

	mock.ExpectBegin()
	mock.ExpectQuery(counterQuery).
		WithArgs(location).
		WillReturnRows(pgxmock.NewRows([]string{"maxcommentid"}).AddRow(int64(7)))
	mock.ExpectExec(insertQuery).
		WithArgs(location, int64(7), posted.Email, posted.DisplayName, posted.Color, posted.Initials, "hello", postedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	stored, err := repository.Append(context.Background(), posted)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.ID)
	assert.Zero(t, posted.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestPostgresRepository_AppendRollsBack never commits a claimed id without its comment.
*/
func TestPostgresRepository_AppendRollsBack(t *testing.T) {
	tests := []struct {
		name   string
		expect func(mock pgxmock.PgxPoolIface)
	}{
		{
			name: "counter_fails",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(counterQuery).WithArgs(location).WillReturnError(errors.New("connection reset"))
			},
		},
		{
			name: "insert_fails",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(counterQuery).
					WithArgs(location).
					WillReturnRows(pgxmock.NewRows([]string{"maxcommentid"}).AddRow(int64(3)))
				mock.ExpectExec(insertQuery).WillReturnError(errors.New("disk full"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repository, mock := newPostgresMock(t)

			mock.ExpectBegin()
			tt.expect(mock)
			mock.ExpectRollback()

			_, err := repository.Append(context.Background(), draft(location, "hello"))
			require.Error(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

/*
TestPostgresRepository_Count reads the counter row and treats a missing row as zero.
*/
func TestPostgresRepository_Count(t *testing.T) {
	repository, mock := newPostgresMock(t)

	mock.ExpectQuery(countQuery).WithArgs(location).
		WillReturnRows(pgxmock.NewRows([]string{"maxcommentid"}).AddRow(int64(12)))
	mock.ExpectQuery(countQuery).WithArgs("nowhere").WillReturnError(pgx.ErrNoRows)

	count, err := repository.Count(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	count, err = repository.Count(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
