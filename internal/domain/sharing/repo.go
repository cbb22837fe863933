package sharing

import (
	"context"
	"errors"

	"github.com/umrs/umrs/internal/domain/actor"
)

var ErrNotFound = errors.New("shared record not found")

type RequestRepository interface {
	Create(ctx context.Context, r *RecordRequest) error
	// ListByActor returns requests where the actor is requester or receiver,
	// newest first.
	ListByActor(ctx context.Context, a actor.Identity) ([]*RecordRequest, error)
}

type ShareRepository interface {
	Create(ctx context.Context, r *SharedRecord) error
	GetByID(ctx context.Context, id int64) (*SharedRecord, error)
	// ListByActor returns records where the actor is sender or receiver,
	// newest first.
	ListByActor(ctx context.Context, a actor.Identity) ([]*SharedRecord, error)
}
