package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/umrs/umrs/internal/domain/actor"
	"github.com/umrs/umrs/internal/platform/db"
)

type accessRepoSQLite struct {
	db     *sql.DB
	writer *db.Writer
}

func NewRepoSQLite(sqlDB *sql.DB, writer *db.Writer) Repository {
	return &accessRepoSQLite{db: sqlDB, writer: writer}
}

const reqCols = `request_id, personal_health_no, requester_kind, requester_slmc_no,
	requester_institute_no, purpose, is_emergency, status, request_date`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		r         Request
		kind      string
		slmcNo    sql.NullString
		instNo    sql.NullString
		purpose   sql.NullString
		emergency int
	)
	err := row.Scan(&r.ID, &r.PatientPHN, &kind, &slmcNo, &instNo,
		&purpose, &emergency, &r.Status, &r.RequestedAt)
	if err != nil {
		return nil, err
	}
	r.Requester, err = actor.FromColumns(kind, slmcNo, instNo)
	if err != nil {
		return nil, fmt.Errorf("request %d: %w", r.ID, err)
	}
	r.Purpose = purpose.String
	r.IsEmergency = emergency != 0
	return &r, nil
}

func (repo *accessRepoSQLite) FindActive(ctx context.Context, patientPHN string, requester actor.Identity) (*Request, error) {
	row := repo.db.QueryRowContext(ctx, `
		SELECT `+reqCols+` FROM record_access_request
		WHERE personal_health_no = ?
		  AND requester_kind = ?
		  AND COALESCE(requester_slmc_no, requester_institute_no) = ?
		  AND status IN ('pending', 'approved')
		ORDER BY request_date DESC, request_id DESC
		LIMIT 1`,
		patientPHN, string(requester.Kind), requester.ID)

	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active access request: %w", err)
	}
	return r, nil
}

func (repo *accessRepoSQLite) Create(ctx context.Context, r *Request) error {
	slmcNo, instNo := r.Requester.Columns()
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO record_access_request
				(personal_health_no, requester_kind, requester_slmc_no,
				 requester_institute_no, purpose, is_emergency, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.PatientPHN, string(r.Requester.Kind), slmcNo, instNo,
			r.Purpose, boolToInt(r.IsEmergency), string(r.Status))
		if err != nil {
			// The unique pair index rejects a second row for the same
			// (patient, requester); a concurrent writer beat this insert.
			var se sqlite3.Error
			if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
				return ErrDuplicate
			}
			return fmt.Errorf("insert access request: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("insert access request: expected 1 row, got %d", n)
		}
		r.ID, err = res.LastInsertId()
		return err
	})
}

func (repo *accessRepoSQLite) Escalate(ctx context.Context, id int64) (bool, error) {
	escalated := false
	err := repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE record_access_request
			SET status = 'approved', is_emergency = 1
			WHERE request_id = ? AND status = 'pending'`, id)
		if err != nil {
			return fmt.Errorf("escalate access request %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// Zero rows means the request was approved already (or gone); the
		// caller treats that as an absorbed duplicate.
		escalated = n == 1
		return nil
	})
	return escalated, err
}

func (repo *accessRepoSQLite) ListByRequester(ctx context.Context, requester actor.Identity) ([]*Request, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+reqCols+` FROM record_access_request
		WHERE requester_kind = ?
		  AND COALESCE(requester_slmc_no, requester_institute_no) = ?
		ORDER BY request_date DESC, request_id DESC`,
		string(requester.Kind), requester.ID)
	if err != nil {
		return nil, fmt.Errorf("list access requests by requester: %w", err)
	}
	return collectRequests(rows)
}

func (repo *accessRepoSQLite) ListByPatient(ctx context.Context, patientPHN string) ([]*Request, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+reqCols+` FROM record_access_request
		WHERE personal_health_no = ?
		ORDER BY request_date DESC, request_id DESC`, patientPHN)
	if err != nil {
		return nil, fmt.Errorf("list access requests by patient: %w", err)
	}
	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]*Request, error) {
	defer rows.Close()
	var items []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
