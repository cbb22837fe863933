// Package medrecord stores the medical records written during patient
// visits. Professional visibility goes through the access subsystem: a
// professional sees records they authored plus those of patients who approved
// their access request.
package medrecord

import (
	"fmt"
	"time"
)

type Record struct {
	ID          int64     `json:"id"`
	PatientPHN  string    `json:"patient_phn"`
	SLMCNo      string    `json:"slmc_no,omitempty"`
	InstituteNo string    `json:"health_institute_no,omitempty"`
	DateOfVisit string    `json:"date_of_visit"`
	Diagnosis   string    `json:"diagnosis,omitempty"`
	Treatment   string    `json:"treatment,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Type        string    `json:"type,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *Record) Validate() error {
	if r.PatientPHN == "" {
		return fmt.Errorf("patient_phn is required")
	}
	if r.DateOfVisit == "" {
		return fmt.Errorf("date_of_visit is required")
	}
	return nil
}
