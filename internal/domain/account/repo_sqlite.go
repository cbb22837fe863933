package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/umrs/umrs/internal/platform/db"
)

type accountRepoSQLite struct {
	db     *sql.DB
	writer *db.Writer
}

func NewRepoSQLite(sqlDB *sql.DB, writer *db.Writer) Repository {
	return &accountRepoSQLite{db: sqlDB, writer: writer}
}

const accountCols = `id, user_type, user_ref, username, password_hash,
	twofa_preference, twofa_code, twofa_issued_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a        Account
		code     sql.NullString
		issuedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.UserType, &a.UserRef, &a.Username, &a.PasswordHash,
		&a.TwoFAPreference, &code, &issuedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.TwoFACode = code.String
	a.TwoFAIssuedAt = issuedAt.Time
	return &a, nil
}

func (repo *accountRepoSQLite) Create(ctx context.Context, a *Account) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_account (id, user_type, user_ref, username, password_hash, twofa_preference)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.UserType, a.UserRef, a.Username, a.PasswordHash, a.TwoFAPreference)
		if err != nil {
			return fmt.Errorf("insert account %s: %w", a.Username, err)
		}
		return nil
	})
}

func (repo *accountRepoSQLite) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := repo.db.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM user_account WHERE username = ?`, username)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account by username: %w", err)
	}
	return a, nil
}

func (repo *accountRepoSQLite) GetByID(ctx context.Context, id string) (*Account, error) {
	row := repo.db.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM user_account WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

func (repo *accountRepoSQLite) SetTwoFACode(ctx context.Context, id, code string, issuedAt time.Time) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE user_account SET twofa_code = ?, twofa_issued_at = ? WHERE id = ?`,
			code, issuedAt, id)
		if err != nil {
			return fmt.Errorf("set 2fa code: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (repo *accountRepoSQLite) ClearTwoFACode(ctx context.Context, id string) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE user_account SET twofa_code = NULL, twofa_issued_at = NULL WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("clear 2fa code: %w", err)
		}
		return nil
	})
}
