package medrecord

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("medical record not found")

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id int64) (*Record, error)
	Update(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id int64) error
	ListByPatient(ctx context.Context, phn string) ([]*Record, error)
	// ListVisibleToProfessional returns records the professional authored
	// plus records of patients covered by an approved access request.
	ListVisibleToProfessional(ctx context.Context, slmcNo string) ([]*Record, error)
}
