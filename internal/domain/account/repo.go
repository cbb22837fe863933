package account

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("account not found")

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	SetTwoFACode(ctx context.Context, id, code string, issuedAt time.Time) error
	ClearTwoFACode(ctx context.Context, id string) error
}
