package services

import (
	"fmt"
	"time"

	"chat-core/auth"
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
)

type IAuthService interface {
	Register(username, email, password string) (Token, error)
	Login(username, password string) (Token, error)
}

type AuthService struct {
	users  contract.UserDirectory
	tokens *auth.TokenIssuer
}

type Token string

func NewAuthService(users contract.UserDirectory, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(username, email, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}

	// Business rules first; no point hashing a password we will reject.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens here so the repository never sees a plain password.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	account := domain.Account{
		Username:     domain.Identity(username),
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(account); err != nil {
		return "", err // Propagates ErrUserAlreadyExists when the name is taken
	}

	token, err := s.tokens.Generate(account.Username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) Login(username, password string) (Token, error) {
	account, err := s.users.GetByUsername(domain.Identity(username))
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, account.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(account.Username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
