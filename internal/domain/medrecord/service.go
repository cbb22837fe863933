package medrecord

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "medrecord").Logger()}
}

func (s *Service) CreateRecord(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.SLMCNo == "" && r.InstituteNo == "" {
		return fmt.Errorf("slmc_no or health_institute_no is required")
	}
	return s.repo.Create(ctx, r)
}

func (s *Service) GetRecord(ctx context.Context, id int64) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateRecord(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, r)
}

func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, phn string) ([]*Record, error) {
	if phn == "" {
		return nil, fmt.Errorf("patient_phn is required")
	}
	return s.repo.ListByPatient(ctx, phn)
}

func (s *Service) ListVisibleToProfessional(ctx context.Context, slmcNo string) ([]*Record, error) {
	if slmcNo == "" {
		return nil, fmt.Errorf("slmc_no is required")
	}
	return s.repo.ListVisibleToProfessional(ctx, slmcNo)
}
