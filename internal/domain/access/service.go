package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/umrs/umrs/internal/domain/actor"
)

// PatientDirectory resolves patient display names for request listings. A
// missing patient yields ("", nil); listings carry a null name in that case.
type PatientDirectory interface {
	DisplayName(ctx context.Context, patientPHN string) (string, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	log      zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		log:      log.With().Str("component", "access").Logger(),
	}
}

// CreateAccessRequest records a request for access to a patient's records.
// At most one active request exists per (patient, requester) pair:
//   - no active row: insert, approved immediately when the request is an
//     emergency, pending otherwise;
//   - active pending row + emergency call: escalate that row to
//     approved+emergency in place, no new row;
//   - any other active row: the call is absorbed and the existing request is
//     returned unchanged.
func (s *Service) CreateAccessRequest(ctx context.Context, patientPHN string, requester actor.Identity, purpose string, isEmergency bool) (*Request, error) {
	req := &Request{
		PatientPHN:  patientPHN,
		Requester:   requester,
		Purpose:     purpose,
		IsEmergency: isEmergency,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The dedup read and the insert are separate statements, so two
	// concurrent calls can both miss. The unique pair index turns the
	// loser's insert into ErrDuplicate; re-reading then resolves against
	// the winner's row. Rows are never deleted, so the second pass always
	// finds one.
	for {
		existing, err := s.repo.FindActive(ctx, patientPHN, requester)
		switch {
		case err == nil:
			if isEmergency && existing.Status == StatusPending {
				escalated, err := s.repo.Escalate(ctx, existing.ID)
				if err != nil {
					return nil, fmt.Errorf("escalate access request: %w", err)
				}
				if escalated {
					existing.Status = StatusApproved
					existing.IsEmergency = true
					s.log.Info().
						Int64("request_id", existing.ID).
						Str("patient_phn", patientPHN).
						Str("requester", requester.String()).
						Msg("pending access request escalated to emergency approval")
				}
				return existing, nil
			}
			// Duplicate while one is already in flight or granted: absorbed.
			s.log.Debug().
				Int64("request_id", existing.ID).
				Str("requester", requester.String()).
				Msg("duplicate access request absorbed")
			return existing, nil

		case errors.Is(err, ErrNotFound):
			req.Status = StatusPending
			if isEmergency {
				req.Status = StatusApproved
			}
			err := s.repo.Create(ctx, req)
			if errors.Is(err, ErrDuplicate) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if isEmergency {
				s.log.Info().
					Int64("request_id", req.ID).
					Str("patient_phn", patientPHN).
					Str("requester", requester.String()).
					Msg("emergency access request auto-approved")
			}
			return req, nil

		default:
			return nil, fmt.Errorf("look up active access request: %w", err)
		}
	}
}

// ListAccessRequests returns the requester's requests, newest first, with
// patient names decorated from the registry.
func (s *Service) ListAccessRequests(ctx context.Context, requester actor.Identity) ([]*Request, error) {
	if err := requester.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByRequester(ctx, requester)
	if err != nil {
		return nil, err
	}
	s.decorateNames(ctx, items)
	return items, nil
}

// ListForPatient returns every request targeting the patient, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientPHN string) ([]*Request, error) {
	if patientPHN == "" {
		return nil, fmt.Errorf("patient_phn is required")
	}
	items, err := s.repo.ListByPatient(ctx, patientPHN)
	if err != nil {
		return nil, err
	}
	s.decorateNames(ctx, items)
	return items, nil
}

func (s *Service) decorateNames(ctx context.Context, items []*Request) {
	names := make(map[string]*string)
	for _, r := range items {
		name, seen := names[r.PatientPHN]
		if !seen {
			got, err := s.patients.DisplayName(ctx, r.PatientPHN)
			if err != nil {
				s.log.Warn().Err(err).Str("patient_phn", r.PatientPHN).Msg("patient name lookup failed")
			} else if got != "" {
				name = &got
			}
			names[r.PatientPHN] = name
		}
		r.PatientName = name
	}
}
