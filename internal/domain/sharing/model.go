// Package sharing implements cross-party record exchange: directed record
// requests between two actors and the append-only log of shared records.
package sharing

import (
	"errors"
	"fmt"
	"time"

	"github.com/umrs/umrs/internal/domain/actor"
)

// ErrSelfRequest rejects a record request whose requester and receiver
// resolve to the same party.
var ErrSelfRequest = errors.New("requester and receiver are the same party")

const (
	RequestStatusPending = "pending"
	ShareStatusShared    = "shared"
)

// RecordRequest asks another actor to hand over a patient's records. Unlike
// access requests there is no dedup: every submission is its own row.
type RecordRequest struct {
	ID          int64          `json:"id"`
	Requester   actor.Identity `json:"requester"`
	Receiver    actor.Identity `json:"receiver"`
	PatientPHN  string         `json:"patient_phn"`
	RecordType  string         `json:"record_type,omitempty"`
	Purpose     string         `json:"purpose,omitempty"`
	Status      string         `json:"status"`
	RequestedAt time.Time      `json:"requested_at"`
}

func (r *RecordRequest) Validate() error {
	if err := r.Requester.Validate(); err != nil {
		return fmt.Errorf("requester: %w", err)
	}
	if err := r.Receiver.Validate(); err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	if r.PatientPHN == "" {
		return fmt.Errorf("patient_phn is required")
	}
	if r.Requester.Equal(r.Receiver) {
		return ErrSelfRequest
	}
	return nil
}

// SharedRecord is one handed-over document. Rows are append-only: nothing in
// this subsystem updates or deletes them, and status never leaves "shared".
type SharedRecord struct {
	ID         int64          `json:"id"`
	Sender     actor.Identity `json:"sender"`
	Receiver   actor.Identity `json:"receiver"`
	PatientPHN string         `json:"patient_phn"`
	RecordType string         `json:"record_type,omitempty"`
	SubType    string         `json:"sub_type,omitempty"`
	FilePath   string         `json:"file_path"`
	Status     string         `json:"status"`
	SharedAt   time.Time      `json:"shared_at"`
}

func (r *SharedRecord) Validate() error {
	if err := r.Sender.Validate(); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if err := r.Receiver.Validate(); err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	if r.PatientPHN == "" {
		return fmt.Errorf("patient_phn is required")
	}
	if r.FilePath == "" {
		return fmt.Errorf("file_path is required")
	}
	return nil
}
