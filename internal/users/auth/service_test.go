// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/users/account"
	"github.com/taibuivan/murmur/internal/users/auth"
)

func ptr(value string) *string { return &value }

/*
TestBroker_RegisterAndVerify creates the user on first verification.
*/
func TestBroker_RegisterAndVerify(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "Alice@Example.com ", "Alice Liddell")

	user, err := f.users.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.DisplayName)
	assert.Equal(t, "AL", user.Initials)

	identity, err := f.sessions.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", identity.Email)

	assert.Len(t, f.mailer.messages, 1)
	assert.Equal(t, "alice@example.com", f.mailer.messages[0].To)
}

/*
TestBroker_RequestChallenge_Rejections covers every precondition failure.
*/
func TestBroker_RequestChallenge_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		username *string
		code     string
	}{
		{name: "invalid_email", email: "not-an-email", username: ptr("Alice"), code: apperr.CodeValidation},
		{name: "register_existing_user", email: "bob@example.com", username: ptr("Bobby"), code: apperr.CodeConflict},
		{name: "register_short_username", email: "carol@example.com", username: ptr("Ca"), code: apperr.CodeValidation},
		{name: "register_long_username", email: "carol@example.com", username: ptr(strings.Repeat("c", 33)), code: apperr.CodeValidation},
		{name: "login_unknown_user", email: "ghost@example.com", code: apperr.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.register(t, "bob@example.com", "Bobby")
			sent := len(f.mailer.messages)

			err := f.broker.RequestChallenge(context.Background(), tt.email, tt.username)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, tt.code), "got %v", err)
			assert.Len(t, f.mailer.messages, sent, "no mail on rejection")
		})
	}
}

/*
TestBroker_Verify_Failures covers missing, wrong and stale codes.
*/
func TestBroker_Verify_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("no_challenge", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.broker.Verify(ctx, "alice@example.com", "123456")
		assert.True(t, errors.Is(err, auth.ErrChallengeNotFound))
	})

	t.Run("wrong_code_keeps_challenge", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.broker.RequestChallenge(ctx, "alice@example.com", ptr("Alice")))
		code := f.mailer.lastCode(t)

		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		_, err := f.broker.Verify(ctx, "alice@example.com", wrong)
		assert.True(t, errors.Is(err, auth.ErrInvalidCode))

		_, err = f.broker.Verify(ctx, "alice@example.com", code)
		assert.NoError(t, err)
	})

	t.Run("expired_code", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.broker.RequestChallenge(ctx, "alice@example.com", ptr("Alice")))
		code := f.mailer.lastCode(t)

		f.clock.Advance(10*time.Minute + time.Second)

		_, err := f.broker.Verify(ctx, "alice@example.com", code)
		assert.True(t, errors.Is(err, auth.ErrCodeExpired))
		assert.Equal(t, 400, apperr.As(err).HTTPStatus)
	})

	t.Run("code_at_exact_ttl_is_accepted", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.broker.RequestChallenge(ctx, "alice@example.com", ptr("Alice")))
		code := f.mailer.lastCode(t)

		f.clock.Advance(10 * time.Minute)

		_, err := f.broker.Verify(ctx, "alice@example.com", code)
		assert.NoError(t, err)
	})
}

/*
TestBroker_Verify_Replay consumes a code exactly once.
*/
func TestBroker_Verify_Replay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.broker.RequestChallenge(ctx, "alice@example.com", ptr("Alice")))
	code := f.mailer.lastCode(t)

	_, err := f.broker.Verify(ctx, "alice@example.com", code)
	require.NoError(t, err)

	_, err = f.broker.Verify(ctx, "alice@example.com", code)
	assert.True(t, errors.Is(err, auth.ErrChallengeNotFound))
}

/*
TestBroker_RequestChallenge_ReplacesPending invalidates the previous code.
*/
func TestBroker_RequestChallenge_ReplacesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice@example.com", "Alice")

	require.NoError(t, f.broker.RequestChallenge(ctx, "alice@example.com", nil))
	first := f.mailer.lastCode(t)
	require.NoError(t, f.broker.RequestChallenge(ctx, "alice@example.com", nil))
	second := f.mailer.lastCode(t)

	if first != second {
		_, err := f.broker.Verify(ctx, "alice@example.com", first)
		assert.True(t, errors.Is(err, auth.ErrInvalidCode))
	}

	_, err := f.broker.Verify(ctx, "alice@example.com", second)
	assert.NoError(t, err)
}

/*
TestBroker_RegistrationRace never overwrites a user created in the meantime.
*/
func TestBroker_RegistrationRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.broker.RequestChallenge(ctx, "alice@example.com", ptr("Alice")))
	code := f.mailer.lastCode(t)

	// Another writer creates the user between request and verify
	winner, err := account.NewUser("alice@example.com", "Alice Prime", f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, winner))

	_, err = f.broker.Verify(ctx, "alice@example.com", code)
	assert.True(t, errors.Is(err, auth.ErrUserExists))

	user, err := f.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Prime", user.DisplayName)
}

/*
TestBroker_MailFailure reports DeliveryFailed and leaves the challenge pending.
*/
func TestBroker_MailFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mailer.fail = errors.New("relay down")

	err := f.broker.RequestChallenge(ctx, "alice@example.com", ptr("Alice"))
	assert.True(t, apperr.HasCode(err, apperr.CodeDeliveryFailed))

	challenge, err := f.challenges.Find(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, challenge.IsRegistration())
	assert.Equal(t, "Alice", *challenge.PendingUsername)
}

/*
TestBroker_MultiDeviceLogin issues independent tokens per login.
*/
func TestBroker_MultiDeviceLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	laptop := f.register(t, "alice@example.com", "Alice")
	phone := f.login(t, "alice@example.com")
	assert.NotEqual(t, laptop, phone)

	for _, token := range []string{laptop, phone} {
		identity, err := f.sessions.Validate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", identity.Email)
	}
}

/*
TestBroker_PurgeExpired removes only challenges past the code TTL.
*/
func TestBroker_PurgeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.broker.RequestChallenge(ctx, "old@example.com", ptr("Old Timer")))
	f.clock.Advance(11 * time.Minute)
	require.NoError(t, f.broker.RequestChallenge(ctx, "new@example.com", ptr("New Comer")))

	removed, err := f.broker.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = f.challenges.Find(ctx, "old@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	_, err = f.challenges.Find(ctx, "new@example.com")
	assert.NoError(t, err)
}
