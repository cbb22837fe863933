// Package access implements standing access requests: a professional or
// institute asking for read access to a patient's records. Requests are
// deduplicated per (patient, requester) pair while active, and an emergency
// request escalates an existing pending one in place.
package access

import (
	"fmt"
	"time"

	"github.com/umrs/umrs/internal/domain/actor"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Request is one requester's access request against one patient. There is no
// denial state: a request is pending until approved and rows are never
// deleted by this subsystem.
type Request struct {
	ID          int64          `json:"id"`
	PatientPHN  string         `json:"patient_phn"`
	Requester   actor.Identity `json:"requester"`
	Purpose     string         `json:"purpose,omitempty"`
	IsEmergency bool           `json:"is_emergency"`
	Status      Status         `json:"status"`
	RequestedAt time.Time      `json:"requested_at"`

	// PatientName is decorated on reads from the patient registry. Nil when
	// the patient record is missing, which is not an error.
	PatientName *string `json:"patient_name,omitempty"`
}

func (r *Request) Validate() error {
	if r.PatientPHN == "" {
		return fmt.Errorf("patient_phn is required")
	}
	if err := r.Requester.Validate(); err != nil {
		return fmt.Errorf("requester: %w", err)
	}
	return nil
}
