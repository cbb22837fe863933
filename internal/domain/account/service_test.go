package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/umrs/umrs/internal/platform/auth"
)

type mockRepo struct {
	accounts map[string]*Account
}

func newMockRepo() *mockRepo {
	return &mockRepo{accounts: make(map[string]*Account)}
}

func (m *mockRepo) Create(_ context.Context, a *Account) error {
	for _, existing := range m.accounts {
		if existing.Username == a.Username {
			return errors.New("UNIQUE constraint failed: user_account.username")
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*Account, error) {
	for _, a := range m.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) SetTwoFACode(_ context.Context, id, code string, issuedAt time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.TwoFACode = code
	a.TwoFAIssuedAt = issuedAt
	return nil
}

func (m *mockRepo) ClearTwoFACode(_ context.Context, id string) error {
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.TwoFACode = ""
	a.TwoFAIssuedAt = time.Time{}
	return nil
}

func testJWTConfig() auth.JWTConfig {
	return auth.JWTConfig{
		SigningKey: []byte("test-secret"),
		Issuer:     "umrs-test",
		TokenTTL:   time.Hour,
	}
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, testJWTConfig(), zerolog.Nop())
}

func TestSignupHashesPassword(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Signup(context.Background(), UserTypeProfessional, "SLMC1001", "dr.silva", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated account id")
	}
	if a.TwoFAPreference != "email" {
		t.Errorf("expected default twofa_preference email, got %q", a.TwoFAPreference)
	}
	stored := repo.accounts[a.ID]
	if stored.PasswordHash == "s3cret-pass" {
		t.Error("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(newMockRepo())

	cases := []struct {
		name     string
		userType string
		userRef  string
		username string
		password string
		wantErr  string
	}{
		{"bad user type", "robot", "X1", "bot", "longenough", "user_type"},
		{"missing user ref", UserTypePatient, "", "pat", "longenough", "user_ref"},
		{"missing username", UserTypePatient, "PHN001", "", "longenough", "username"},
		{"short password", UserTypePatient, "PHN001", "pat", "short", "at least 8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.userType, tc.userRef, tc.username, tc.password, "")
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	if _, err := svc.Signup(context.Background(), UserTypePatient, "PHN001", "kamal", "correct-pass", ""); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, err := svc.Login(context.Background(), "kamal", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody", "correct-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLoginIssuesCode(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Signup(context.Background(), UserTypeInstitute, "INST01", "lanka.hospital", "correct-pass", "sms")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	challenge, err := svc.Login(context.Background(), "lanka.hospital", "correct-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if challenge.AccountID != a.ID {
		t.Errorf("challenge account id = %q, want %q", challenge.AccountID, a.ID)
	}
	if challenge.TwoFAPreference != "sms" {
		t.Errorf("challenge channel = %q, want sms", challenge.TwoFAPreference)
	}
	stored := repo.accounts[a.ID]
	if len(stored.TwoFACode) != 6 {
		t.Errorf("expected 6-digit code, got %q", stored.TwoFACode)
	}
	if stored.TwoFAIssuedAt.IsZero() {
		t.Error("expected issued_at to be set")
	}
}

func TestVerify2FAHappyPath(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Signup(context.Background(), UserTypeProfessional, "SLMC1001", "dr.silva", "correct-pass", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Login(context.Background(), "dr.silva", "correct-pass"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	code := repo.accounts[a.ID].TwoFACode
	token, err := svc.Verify2FA(context.Background(), a.ID, code)
	if err != nil {
		t.Fatalf("Verify2FA: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if repo.accounts[a.ID].TwoFACode != "" {
		t.Error("expected code cleared after use")
	}
	// A used code must not work again.
	if _, err := svc.Verify2FA(context.Background(), a.ID, code); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode on reuse, got %v", err)
	}
}

func TestVerify2FAWrongCode(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Signup(context.Background(), UserTypePatient, "PHN001", "kamal", "correct-pass", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Login(context.Background(), "kamal", "correct-pass"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.Verify2FA(context.Background(), a.ID, "000000"); !errors.Is(err, ErrInvalidCode) {
		// One-in-a-million collision with the real code is acceptable noise.
		if repo.accounts[a.ID].TwoFACode != "000000" {
			t.Errorf("expected ErrInvalidCode, got %v", err)
		}
	}
}

func TestVerify2FAExpiredCode(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Signup(context.Background(), UserTypePatient, "PHN001", "kamal", "correct-pass", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Login(context.Background(), "kamal", "correct-pass"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	stored := repo.accounts[a.ID]
	stored.TwoFAIssuedAt = time.Now().Add(-TwoFATTL - time.Minute)

	if _, err := svc.Verify2FA(context.Background(), a.ID, stored.TwoFACode); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("expected ErrCodeExpired, got %v", err)
	}
}
