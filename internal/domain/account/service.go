package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/umrs/umrs/internal/platform/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
)

// Challenge is the intermediate login state: the password checked out and a
// one-time code was issued through the account's preferred channel.
type Challenge struct {
	AccountID       string `json:"account_id"`
	TwoFAPreference string `json:"twofa_preference"`
}

type Service struct {
	repo   Repository
	jwtCfg auth.JWTConfig
	log    zerolog.Logger
}

func NewService(repo Repository, jwtCfg auth.JWTConfig, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		jwtCfg: jwtCfg,
		log:    log.With().Str("component", "account").Logger(),
	}
}

func (s *Service) Signup(ctx context.Context, userType, userRef, username, password, twofaPref string) (*Account, error) {
	a := &Account{
		ID:              uuid.New().String(),
		UserType:        userType,
		UserRef:         userRef,
		Username:        username,
		TwoFAPreference: twofaPref,
	}
	if a.TwoFAPreference == "" {
		a.TwoFAPreference = "email"
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info().Str("account_id", a.ID).Str("user_type", a.UserType).Msg("account created")
	return a, nil
}

// Login verifies the password and issues a one-time code. Delivery goes over
// the account's preferred channel; in this deployment the code is written to
// the log for the notifier to pick up.
func (s *Service) Login(ctx context.Context, username, password string) (*Challenge, error) {
	a, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate 2fa code: %w", err)
	}
	if err := s.repo.SetTwoFACode(ctx, a.ID, code, time.Now()); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", a.ID).
		Str("channel", a.TwoFAPreference).
		Str("code", code).
		Msg("2fa code issued")
	return &Challenge{AccountID: a.ID, TwoFAPreference: a.TwoFAPreference}, nil
}

// Verify2FA checks the one-time code and returns a signed session token.
func (s *Service) Verify2FA(ctx context.Context, accountID, code string) (string, error) {
	a, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if a.TwoFACode == "" || a.TwoFACode != code {
		return "", ErrInvalidCode
	}
	if time.Since(a.TwoFAIssuedAt) > TwoFATTL {
		return "", ErrCodeExpired
	}

	if err := s.repo.ClearTwoFACode(ctx, a.ID); err != nil {
		return "", err
	}
	token, err := auth.IssueToken(s.jwtCfg, a.UserType, a.UserRef, []string{a.UserType})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
