package access

import (
	"context"
	"errors"

	"github.com/umrs/umrs/internal/domain/actor"
)

var (
	ErrNotFound = errors.New("access request not found")
	// ErrDuplicate is returned by Create when a row for the (patient,
	// requester) pair already exists, i.e. a concurrent writer won the race
	// between the caller's dedup read and its insert.
	ErrDuplicate = errors.New("active access request already exists")
)

type Repository interface {
	// FindActive returns the single active (pending or approved) request for
	// the (patient, requester) pair, or ErrNotFound.
	FindActive(ctx context.Context, patientPHN string, requester actor.Identity) (*Request, error)
	// Create inserts a new request, or returns ErrDuplicate when the pair
	// already has a row.
	Create(ctx context.Context, r *Request) error
	// Escalate flips a pending request to approved+emergency in place. A
	// request already approved is left untouched and reported via the bool.
	Escalate(ctx context.Context, id int64) (bool, error)
	ListByRequester(ctx context.Context, requester actor.Identity) ([]*Request, error)
	ListByPatient(ctx context.Context, patientPHN string) ([]*Request, error)
}
