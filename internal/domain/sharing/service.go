package sharing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/umrs/umrs/internal/domain/actor"
)

type Service struct {
	requests RequestRepository
	shares   ShareRepository
	log      zerolog.Logger
}

func NewService(requests RequestRepository, shares ShareRepository, log zerolog.Logger) *Service {
	return &Service{
		requests: requests,
		shares:   shares,
		log:      log.With().Str("component", "sharing").Logger(),
	}
}

// CreateRecordRequest records a directed request between two actors. Every
// accepted call inserts a new pending row; repeated submissions are the
// caller's business, not deduplicated here.
func (s *Service) CreateRecordRequest(ctx context.Context, requester, receiver actor.Identity, patientPHN, recordType, purpose string) (*RecordRequest, error) {
	req := &RecordRequest{
		Requester:  requester,
		Receiver:   receiver,
		PatientPHN: patientPHN,
		RecordType: recordType,
		Purpose:    purpose,
		Status:     RequestStatusPending,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) ListRecordRequests(ctx context.Context, a actor.Identity) ([]*RecordRequest, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return s.requests.ListByActor(ctx, a)
}

// ShareRecord appends one shared-record row pointing at an already persisted
// document. The blob write happened before this call; if the insert fails the
// orphaned file is the caller's to log.
func (s *Service) ShareRecord(ctx context.Context, sender, receiver actor.Identity, patientPHN, recordType, subType, filePath string) (*SharedRecord, error) {
	rec := &SharedRecord{
		Sender:     sender,
		Receiver:   receiver,
		PatientPHN: patientPHN,
		RecordType: recordType,
		SubType:    subType,
		FilePath:   filePath,
		Status:     ShareStatusShared,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := s.shares.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("record_id", rec.ID).
		Str("sender", sender.String()).
		Str("receiver", receiver.String()).
		Str("patient_phn", patientPHN).
		Msg("record shared")
	return rec, nil
}

func (s *Service) GetSharedRecord(ctx context.Context, id int64) (*SharedRecord, error) {
	return s.shares.GetByID(ctx, id)
}

func (s *Service) ListSharedRecords(ctx context.Context, a actor.Identity) ([]*SharedRecord, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return s.shares.ListByActor(ctx, a)
}
