package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return s
}

func TestLinkAccountInsertsThenUpdates(t *testing.T) {
	assert := assert.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.LinkAccount(ctx, Account{
		Platform:    "github",
		Account:     "1234",
		Refresh:     "refresh-1",
		Access:      "access-1",
		Expire:      time.Now().Add(time.Hour),
		Handle:      "octocat",
		Name:        "The Octocat",
		Description: "likes fish",
		Image:       "https://avatars.example/1234",
	})
	require.NoError(t, err)
	assert.NotEmpty(first.ID)
	assert.Equal("refresh-1", first.Refresh)

	// the same identity signs in again with rotated tokens and a new
	// handle, but without a fresh refresh token
	second, err := s.LinkAccount(ctx, Account{
		Platform: "github",
		Account:  "1234",
		Access:   "access-2",
		Expire:   time.Now().Add(2 * time.Hour),
		Handle:   "octodog",
	})
	require.NoError(t, err)

	assert.Equal(first.ID, second.ID, "the local id is stable across sign-ins")
	assert.Equal("access-2", second.Access)
	assert.Equal("octodog", second.Handle)
	assert.Equal("refresh-1", second.Refresh, "a missing refresh token must not blank the stored one")

	var count int64
	require.NoError(t, s.db.Model(&Account{}).Count(&count).Error)
	assert.EqualValues(1, count)
}

func TestLinkAccountKeysOnPlatformAndAccount(t *testing.T) {
	assert := assert.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	gh, err := s.LinkAccount(ctx, Account{Platform: "github", Account: "1234", Handle: "octocat"})
	require.NoError(t, err)

	// the same external id on another platform is a different account
	dc, err := s.LinkAccount(ctx, Account{Platform: "discord", Account: "1234", Handle: "octocat"})
	require.NoError(t, err)

	assert.NotEqual(gh.ID, dc.ID)

	var count int64
	require.NoError(t, s.db.Model(&Account{}).Count(&count).Error)
	assert.EqualValues(2, count)
}

func TestGetAccount(t *testing.T) {
	assert := assert.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	linked, err := s.LinkAccount(ctx, Account{Platform: "github", Account: "1234", Handle: "octocat"})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal("octocat", got.Handle)

	_, err = s.GetAccount(ctx, "no-such-id")
	assert.ErrorIs(err, ErrNotFound)
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
