package repositories

import (
	"context"
	"log/slog"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"

	"chat-core/domain"
	"chat-core/errors"
)

func openTestIndex(t *testing.T) *bluge.Writer {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return writer
}

func Test_Create_And_Get_Account(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), openTestIndex(t), slog.Default())

	account := domain.Account{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
		PushToken:    "expo-token-1",
	}
	req.NoError(repo.Create(account))

	fetched, err := repo.GetByUsername("alice")
	req.NoError(err)
	req.Equal(account.Username, fetched.Username)
	// The hash and token are hidden from API serialization but must survive
	// storage, or login and push fan-out read empty values.
	req.Equal(account.PasswordHash, fetched.PasswordHash)
	req.Equal(account.PushToken, fetched.PushToken)
}

func Test_Create_Rejects_Duplicates(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), openTestIndex(t), slog.Default())

	req.NoError(repo.Create(domain.Account{Username: "alice", Email: "alice@example.com"}))

	// Same username
	err := repo.Create(domain.Account{Username: "alice", Email: "other@example.com"})
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	// Same email, different username
	err = repo.Create(domain.Account{Username: "alicia", Email: "alice@example.com"})
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), openTestIndex(t), slog.Default())

	_, err := repo.GetByUsername("ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_SetPushToken_Roundtrip(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), openTestIndex(t), slog.Default())

	req.NoError(repo.Create(domain.Account{Username: "bob", Email: "bob@example.com"}))
	req.NoError(repo.SetPushToken("bob", "expo-token-9"))

	fetched, err := repo.GetByUsername("bob")
	req.NoError(err)
	req.Equal("expo-token-9", fetched.PushToken)
}

func Test_Search_Finds_By_Prefix(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t), openTestIndex(t), slog.Default())

	req.NoError(repo.Create(domain.Account{Username: "alice", Email: "a@example.com"}))
	req.NoError(repo.Create(domain.Account{Username: "alicia", Email: "b@example.com"}))
	req.NoError(repo.Create(domain.Account{Username: "bob", Email: "c@example.com"}))

	// Case-insensitive prefix probe
	accounts, err := repo.Search(ctx, "Ali", 10)
	req.NoError(err)
	req.Len(accounts, 2)

	accounts, err = repo.Search(ctx, "bob", 10)
	req.NoError(err)
	req.Len(accounts, 1)
	req.Equal(domain.Identity("bob"), accounts[0].Username)

	// Empty query returns nothing instead of everything
	accounts, err = repo.Search(ctx, "  ", 10)
	req.NoError(err)
	req.Empty(accounts)
}
