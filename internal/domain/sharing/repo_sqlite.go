package sharing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/umrs/umrs/internal/domain/actor"
	"github.com/umrs/umrs/internal/platform/db"
)

// -- Record requests --

type requestRepoSQLite struct {
	db     *sql.DB
	writer *db.Writer
}

func NewRequestRepoSQLite(sqlDB *sql.DB, writer *db.Writer) RequestRepository {
	return &requestRepoSQLite{db: sqlDB, writer: writer}
}

const recordRequestCols = `request_id, requester_kind, requester_slmc_no, requester_institute_no,
	receiver_kind, receiver_slmc_no, receiver_institute_no,
	personal_health_no, record_type, purpose, status, request_date`

func (repo *requestRepoSQLite) Create(ctx context.Context, r *RecordRequest) error {
	reqSLMC, reqInst := r.Requester.Columns()
	recvSLMC, recvInst := r.Receiver.Columns()
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO record_request
				(requester_kind, requester_slmc_no, requester_institute_no,
				 receiver_kind, receiver_slmc_no, receiver_institute_no,
				 personal_health_no, record_type, purpose, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(r.Requester.Kind), reqSLMC, reqInst,
			string(r.Receiver.Kind), recvSLMC, recvInst,
			r.PatientPHN, r.RecordType, r.Purpose, r.Status)
		if err != nil {
			return fmt.Errorf("insert record request: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("insert record request: expected 1 row, got %d", n)
		}
		r.ID, err = res.LastInsertId()
		return err
	})
}

func (repo *requestRepoSQLite) ListByActor(ctx context.Context, a actor.Identity) ([]*RecordRequest, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+recordRequestCols+` FROM record_request
		WHERE (requester_kind = ? AND COALESCE(requester_slmc_no, requester_institute_no) = ?)
		   OR (receiver_kind = ? AND COALESCE(receiver_slmc_no, receiver_institute_no) = ?)
		ORDER BY request_date DESC, request_id DESC`,
		string(a.Kind), a.ID, string(a.Kind), a.ID)
	if err != nil {
		return nil, fmt.Errorf("list record requests: %w", err)
	}
	defer rows.Close()

	var items []*RecordRequest
	for rows.Next() {
		r, err := scanRecordRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func scanRecordRequest(rows *sql.Rows) (*RecordRequest, error) {
	var (
		r                   RecordRequest
		reqKind, recvKind   string
		reqSLMC, reqInst    sql.NullString
		recvSLMC, recvInst  sql.NullString
		recordType, purpose sql.NullString
	)
	err := rows.Scan(&r.ID, &reqKind, &reqSLMC, &reqInst,
		&recvKind, &recvSLMC, &recvInst,
		&r.PatientPHN, &recordType, &purpose, &r.Status, &r.RequestedAt)
	if err != nil {
		return nil, err
	}
	if r.Requester, err = actor.FromColumns(reqKind, reqSLMC, reqInst); err != nil {
		return nil, fmt.Errorf("record request %d: %w", r.ID, err)
	}
	if r.Receiver, err = actor.FromColumns(recvKind, recvSLMC, recvInst); err != nil {
		return nil, fmt.Errorf("record request %d: %w", r.ID, err)
	}
	r.RecordType = recordType.String
	r.Purpose = purpose.String
	return &r, nil
}

// -- Shared records --

type shareRepoSQLite struct {
	db     *sql.DB
	writer *db.Writer
}

func NewShareRepoSQLite(sqlDB *sql.DB, writer *db.Writer) ShareRepository {
	return &shareRepoSQLite{db: sqlDB, writer: writer}
}

const sharedRecordCols = `record_id, sender_kind, sender_slmc_no, sender_institute_no,
	receiver_kind, receiver_slmc_no, receiver_institute_no,
	personal_health_no, record_type, sub_type, file_path, status, share_date`

func (repo *shareRepoSQLite) Create(ctx context.Context, r *SharedRecord) error {
	sendSLMC, sendInst := r.Sender.Columns()
	recvSLMC, recvInst := r.Receiver.Columns()
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO shared_record
				(sender_kind, sender_slmc_no, sender_institute_no,
				 receiver_kind, receiver_slmc_no, receiver_institute_no,
				 personal_health_no, record_type, sub_type, file_path, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(r.Sender.Kind), sendSLMC, sendInst,
			string(r.Receiver.Kind), recvSLMC, recvInst,
			r.PatientPHN, r.RecordType, r.SubType, r.FilePath, r.Status)
		if err != nil {
			return fmt.Errorf("insert shared record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("insert shared record: expected 1 row, got %d", n)
		}
		r.ID, err = res.LastInsertId()
		return err
	})
}

func (repo *shareRepoSQLite) GetByID(ctx context.Context, id int64) (*SharedRecord, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+sharedRecordCols+` FROM shared_record WHERE record_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get shared record %d: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanSharedRecord(rows)
}

func (repo *shareRepoSQLite) ListByActor(ctx context.Context, a actor.Identity) ([]*SharedRecord, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+sharedRecordCols+` FROM shared_record
		WHERE (sender_kind = ? AND COALESCE(sender_slmc_no, sender_institute_no) = ?)
		   OR (receiver_kind = ? AND COALESCE(receiver_slmc_no, receiver_institute_no) = ?)
		ORDER BY share_date DESC, record_id DESC`,
		string(a.Kind), a.ID, string(a.Kind), a.ID)
	if err != nil {
		return nil, fmt.Errorf("list shared records: %w", err)
	}
	defer rows.Close()

	var items []*SharedRecord
	for rows.Next() {
		r, err := scanSharedRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func scanSharedRecord(rows *sql.Rows) (*SharedRecord, error) {
	var (
		r                   SharedRecord
		sendKind, recvKind  string
		sendSLMC, sendInst  sql.NullString
		recvSLMC, recvInst  sql.NullString
		recordType, subType sql.NullString
	)
	err := rows.Scan(&r.ID, &sendKind, &sendSLMC, &sendInst,
		&recvKind, &recvSLMC, &recvInst,
		&r.PatientPHN, &recordType, &subType, &r.FilePath, &r.Status, &r.SharedAt)
	if err != nil {
		return nil, err
	}
	if r.Sender, err = actor.FromColumns(sendKind, sendSLMC, sendInst); err != nil {
		return nil, fmt.Errorf("shared record %d: %w", r.ID, err)
	}
	if r.Receiver, err = actor.FromColumns(recvKind, recvSLMC, recvInst); err != nil {
		return nil, fmt.Errorf("shared record %d: %w", r.ID, err)
	}
	r.RecordType = recordType.String
	r.SubType = subType.String
	return &r, nil
}
