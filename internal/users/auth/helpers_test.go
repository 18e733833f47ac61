// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/murmur/internal/platform/mailer"
	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/internal/users/account"
	"github.com/taibuivan/murmur/internal/users/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var codePattern = regexp.MustCompile(`[0-9]{6}`)

// recordingMailer keeps every message and can be switched to fail.
type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	fail     error
}

func (recorder *recordingMailer) Send(_ context.Context, message mailer.Message) error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.fail != nil {
		return recorder.fail
	}
	recorder.messages = append(recorder.messages, message)
	return nil
}

// lastCode extracts the code from the most recent message.
func (recorder *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.NotEmpty(t, recorder.messages, "no mail was sent")
	code := codePattern.FindString(recorder.messages[len(recorder.messages)-1].Plain)
	require.NotEmpty(t, code)
	return code
}

type fixture struct {
	users      *account.MemoryRepository
	challenges *auth.MemoryChallengeRepository
	mailer     *recordingMailer
	clock      *clockwork.FakeClock
	sessions   *auth.SessionManager
	broker     *auth.Broker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec, err := sec.NewTokenCodec(testSecret, "murmur")
	require.NoError(t, err)

	f := &fixture{
		users:      account.NewMemoryRepository(),
		challenges: auth.NewMemoryChallengeRepository(),
		mailer:     &recordingMailer{},
		clock:      clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.sessions = auth.NewSessionManager(f.users, codec, f.clock, 30*24*time.Hour)
	f.broker = auth.NewBroker(auth.BrokerDependencies{
		Users:      f.users,
		Challenges: f.challenges,
		Sessions:   f.sessions,
		Mailer:     f.mailer,
		Clock:      f.clock,
		Policy: auth.Policy{
			CodeTTL:      10 * time.Minute,
			TokenTTL:     30 * 24 * time.Hour,
			CodeHashCost: bcrypt.MinCost,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

// register runs the full registration flow and returns the token.
func (f *fixture) register(t *testing.T, email, username string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.broker.RequestChallenge(ctx, email, &username))
	token, err := f.broker.Verify(ctx, email, f.mailer.lastCode(t))
	require.NoError(t, err)
	return token
}

// login runs the full login flow and returns the token.
func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.broker.RequestChallenge(ctx, email, nil))
	token, err := f.broker.Verify(ctx, email, f.mailer.lastCode(t))
	require.NoError(t, err)
	return token
}

// failingUsers makes every lookup look like an outage.
type failingUsers struct {
	*account.MemoryRepository
}

var errOutage = errors.New("connection refused")

func (failingUsers) FindByEmail(context.Context, string) (*account.User, error) {
	return nil, errOutage
}
