// Package account handles portal sign-in for the three user types. Login is
// two-step: password check, then a short-lived one-time code, then a signed
// session token.
package account

import (
	"fmt"
	"time"
)

const (
	UserTypePatient      = "patient"
	UserTypeProfessional = "professional"
	UserTypeInstitute    = "institute"
)

// TwoFATTL is how long an issued one-time code stays valid.
const TwoFATTL = 5 * time.Minute

type Account struct {
	ID              string    `json:"id"`
	UserType        string    `json:"user_type"`
	UserRef         string    `json:"user_ref"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	TwoFAPreference string    `json:"twofa_preference"`
	TwoFACode       string    `json:"-"`
	TwoFAIssuedAt   time.Time `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

func validUserType(t string) bool {
	return t == UserTypePatient || t == UserTypeProfessional || t == UserTypeInstitute
}

func (a *Account) Validate() error {
	if !validUserType(a.UserType) {
		return fmt.Errorf("user_type must be %s, %s or %s", UserTypePatient, UserTypeProfessional, UserTypeInstitute)
	}
	if a.UserRef == "" {
		return fmt.Errorf("user_ref is required")
	}
	if a.Username == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}
