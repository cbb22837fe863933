package medrecord

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/umrs/umrs/internal/platform/db"
)

type recordRepoSQLite struct {
	db     *sql.DB
	writer *db.Writer
}

func NewRepoSQLite(sqlDB *sql.DB, writer *db.Writer) Repository {
	return &recordRepoSQLite{db: sqlDB, writer: writer}
}

const recordCols = `record_id, personal_health_no, slmc_no, health_institute_no,
	date_of_visit, diagnosis, treatment, notes, type, summary, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r                     Record
		slmcNo, instNo        sql.NullString
		diagnosis, treatment  sql.NullString
		notes, rType, summary sql.NullString
	)
	err := row.Scan(&r.ID, &r.PatientPHN, &slmcNo, &instNo,
		&r.DateOfVisit, &diagnosis, &treatment, &notes, &rType, &summary, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.SLMCNo = slmcNo.String
	r.InstituteNo = instNo.String
	r.Diagnosis = diagnosis.String
	r.Treatment = treatment.String
	r.Notes = notes.String
	r.Type = rType.String
	r.Summary = summary.String
	return &r, nil
}

func (repo *recordRepoSQLite) Create(ctx context.Context, r *Record) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO medical_record
				(personal_health_no, slmc_no, health_institute_no, date_of_visit,
				 diagnosis, treatment, notes, type, summary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.PatientPHN, r.SLMCNo, r.InstituteNo, r.DateOfVisit,
			r.Diagnosis, r.Treatment, r.Notes, r.Type, r.Summary)
		if err != nil {
			return fmt.Errorf("insert medical record: %w", err)
		}
		r.ID, err = res.LastInsertId()
		return err
	})
}

func (repo *recordRepoSQLite) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := repo.db.QueryRowContext(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE record_id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medical record %d: %w", id, err)
	}
	return r, nil
}

func (repo *recordRepoSQLite) Update(ctx context.Context, r *Record) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE medical_record
			SET diagnosis = ?, treatment = ?, notes = ?, type = ?, summary = ?, date_of_visit = ?
			WHERE record_id = ?`,
			r.Diagnosis, r.Treatment, r.Notes, r.Type, r.Summary, r.DateOfVisit, r.ID)
		if err != nil {
			return fmt.Errorf("update medical record %d: %w", r.ID, err)
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

func (repo *recordRepoSQLite) Delete(ctx context.Context, id int64) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM medical_record WHERE record_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete medical record %d: %w", id, err)
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

func (repo *recordRepoSQLite) ListByPatient(ctx context.Context, phn string) ([]*Record, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+recordCols+` FROM medical_record
		WHERE personal_health_no = ?
		ORDER BY date_of_visit DESC, record_id DESC`, phn)
	if err != nil {
		return nil, fmt.Errorf("list medical records by patient: %w", err)
	}
	return collectRecords(rows)
}

func (repo *recordRepoSQLite) ListVisibleToProfessional(ctx context.Context, slmcNo string) ([]*Record, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT DISTINCT `+recordCols+` FROM medical_record mr
		WHERE mr.slmc_no = ?
		   OR mr.personal_health_no IN (
			SELECT personal_health_no FROM record_access_request
			WHERE requester_kind = 'professional'
			  AND requester_slmc_no = ?
			  AND status = 'approved')
		ORDER BY date_of_visit DESC, record_id DESC`, slmcNo, slmcNo)
	if err != nil {
		return nil, fmt.Errorf("list medical records for professional: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
