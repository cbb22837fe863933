// Package actor defines the identity of a party that can request, receive or
// send medical records: either a licensed healthcare professional (identified
// by SLMC number) or a healthcare institute (identified by institute number).
// An Identity is a tagged variant — exactly one of the two kinds, never both.
package actor

import (
	"database/sql"
	"fmt"
)

type Kind string

const (
	KindProfessional Kind = "professional"
	KindInstitute    Kind = "institute"
)

// Identity names exactly one party. Construct with Professional or Institute;
// the zero value is invalid.
type Identity struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Professional returns the identity of a professional by SLMC number.
func Professional(slmcNo string) Identity {
	return Identity{Kind: KindProfessional, ID: slmcNo}
}

// Institute returns the identity of an institute by institute number.
func Institute(instituteNo string) Identity {
	return Identity{Kind: KindInstitute, ID: instituteNo}
}

func (i Identity) IsZero() bool {
	return i.Kind == "" && i.ID == ""
}

// Equal reports whether two identities resolve to the same party.
func (i Identity) Equal(other Identity) bool {
	return i.Kind == other.Kind && i.ID == other.ID
}

func (i Identity) Validate() error {
	if i.Kind != KindProfessional && i.Kind != KindInstitute {
		return fmt.Errorf("actor kind must be %q or %q, got %q", KindProfessional, KindInstitute, i.Kind)
	}
	if i.ID == "" {
		return fmt.Errorf("actor id is required")
	}
	return nil
}

// Columns splits the identity into the (slmc_no, institute_no) column pair
// used by the persisted layout. Exactly one of the returned values is valid.
func (i Identity) Columns() (slmcNo, instituteNo sql.NullString) {
	switch i.Kind {
	case KindProfessional:
		slmcNo = sql.NullString{String: i.ID, Valid: true}
	case KindInstitute:
		instituteNo = sql.NullString{String: i.ID, Valid: true}
	}
	return slmcNo, instituteNo
}

// FromColumns reassembles an Identity from the persisted column triple.
func FromColumns(kind string, slmcNo, instituteNo sql.NullString) (Identity, error) {
	switch Kind(kind) {
	case KindProfessional:
		if !slmcNo.Valid {
			return Identity{}, fmt.Errorf("professional row without slmc_no")
		}
		return Professional(slmcNo.String), nil
	case KindInstitute:
		if !instituteNo.Valid {
			return Identity{}, fmt.Errorf("institute row without institute_no")
		}
		return Institute(instituteNo.String), nil
	default:
		return Identity{}, fmt.Errorf("unknown actor kind %q", kind)
	}
}

// FromPortal maps a portal account (user type plus registry reference) to an
// Identity. Patient accounts are not actors; ok is false for them.
func FromPortal(userType, ref string) (Identity, bool) {
	if ref == "" {
		return Identity{}, false
	}
	switch Kind(userType) {
	case KindProfessional:
		return Professional(ref), true
	case KindInstitute:
		return Institute(ref), true
	default:
		return Identity{}, false
	}
}

func (i Identity) String() string {
	return string(i.Kind) + ":" + i.ID
}
