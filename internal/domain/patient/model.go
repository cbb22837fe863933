// Package patient is the patient registry. Other subsystems reference
// patients by personal health number (PHN) and resolve display names here.
package patient

import (
	"fmt"
	"time"
)

type Patient struct {
	PHN                   string    `json:"personal_health_no"`
	NIC                   string    `json:"nic,omitempty"`
	Name                  string    `json:"name"`
	DateOfBirth           string    `json:"date_of_birth,omitempty"`
	Gender                string    `json:"gender,omitempty"`
	Address               string    `json:"address,omitempty"`
	PhoneNumber           string    `json:"phone_number,omitempty"`
	Email                 string    `json:"email,omitempty"`
	EmergencyContactName  string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

func (p *Patient) Validate() error {
	if p.PHN == "" {
		return fmt.Errorf("personal_health_no is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
