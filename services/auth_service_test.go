package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-core/auth"
	"chat-core/domain"
	"chat-core/errors"
	"chat-core/mocks"
)

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer([]byte("unit-test-secret"), "chat-core", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserDirectory(ctrl)
	svc := NewAuthService(mockUsers, testIssuer())

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)

		// Expect Create to be called with a hashed password (not the plain one)
		mockUsers.EXPECT().
			Create(gomock.Any()).
			DoAndReturn(func(account domain.Account) error {
				req.Equal(domain.Identity("alice"), account.Username)
				req.NotEqual("ComplexPass123!", account.PasswordHash)
				req.NotEmpty(account.PasswordHash)
				return nil
			}).
			Times(1)

		token, err := svc.Register("alice", "alice@example.com", "ComplexPass123!")

		req.NoError(err)
		req.NotEmpty(token)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockUsers.EXPECT().Create(gomock.Any()).Times(0)

		token, err := svc.Register("alice", "alice@example.com", "simple")

		req.Error(err)
		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when username carries the room separator", func(t *testing.T) {
		req := require.New(t)

		mockUsers.EXPECT().Create(gomock.Any()).Times(0)

		_, err := svc.Register("ali_ce", "alice@example.com", "ComplexPass123!")
		req.Error(err)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)

		mockUsers.EXPECT().
			Create(gomock.Any()).
			Return(errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("bob", "duplicate@example.com", "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockUserDirectory(ctrl)
	svc := NewAuthService(mockUsers, testIssuer())

	hash, err := auth.HashPassword("ComplexPass123!")
	require.NoError(t, err)
	stored := domain.Account{Username: "alice", PasswordHash: hash}

	t.Run("should return a token for valid credentials", func(t *testing.T) {
		req := require.New(t)

		mockUsers.EXPECT().
			GetByUsername(domain.Identity("alice")).
			Return(stored, nil)

		token, err := svc.Login("alice", "ComplexPass123!")
		req.NoError(err)
		req.NotEmpty(token)

		claims, err := testIssuer().Validate(string(token))
		req.NoError(err)
		req.Equal("alice", claims.Username)
	})

	t.Run("should hide unknown users behind a generic error", func(t *testing.T) {
		req := require.New(t)

		mockUsers.EXPECT().
			GetByUsername(domain.Identity("ghost")).
			Return(domain.Account{}, errors.ErrUserNotFound)

		_, err := svc.Login("ghost", "whatever")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should reject a wrong password with the same error", func(t *testing.T) {
		req := require.New(t)

		mockUsers.EXPECT().
			GetByUsername(domain.Identity("alice")).
			Return(stored, nil)

		_, err := svc.Login("alice", "WrongPass123!")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
