package patient

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "patient").Logger()}
}

func (s *Service) Register(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, phn string) (*Patient, error) {
	return s.repo.GetByPHN(ctx, phn)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// DisplayName resolves a patient's name for listings in other subsystems.
// An unknown PHN yields ("", nil): decorating a listing must not fail just
// because the patient record is gone.
func (s *Service) DisplayName(ctx context.Context, phn string) (string, error) {
	p, err := s.repo.GetByPHN(ctx, phn)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Name, nil
}
