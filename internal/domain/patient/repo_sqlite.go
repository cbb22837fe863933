package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/umrs/umrs/internal/platform/db"
)

type patientRepoSQLite struct {
	db     *sql.DB
	writer *db.Writer
}

func NewRepoSQLite(sqlDB *sql.DB, writer *db.Writer) Repository {
	return &patientRepoSQLite{db: sqlDB, writer: writer}
}

const patientCols = `personal_health_no, nic, name, date_of_birth, gender, address,
	phone_number, email, emergency_contact_name, emergency_contact_phone, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var (
		p                         Patient
		nic, dob, gender          sql.NullString
		address, phone, email     sql.NullString
		contactName, contactPhone sql.NullString
	)
	err := row.Scan(&p.PHN, &nic, &p.Name, &dob, &gender, &address,
		&phone, &email, &contactName, &contactPhone, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.NIC = nic.String
	p.DateOfBirth = dob.String
	p.Gender = gender.String
	p.Address = address.String
	p.PhoneNumber = phone.String
	p.Email = email.String
	p.EmergencyContactName = contactName.String
	p.EmergencyContactPhone = contactPhone.String
	return &p, nil
}

func (repo *patientRepoSQLite) Create(ctx context.Context, p *Patient) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO patient
				(personal_health_no, nic, name, date_of_birth, gender, address,
				 phone_number, email, emergency_contact_name, emergency_contact_phone)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.PHN, p.NIC, p.Name, p.DateOfBirth, p.Gender, p.Address,
			p.PhoneNumber, p.Email, p.EmergencyContactName, p.EmergencyContactPhone)
		if err != nil {
			return fmt.Errorf("insert patient %s: %w", p.PHN, err)
		}
		return nil
	})
}

func (repo *patientRepoSQLite) GetByPHN(ctx context.Context, phn string) (*Patient, error) {
	row := repo.db.QueryRowContext(ctx,
		`SELECT `+patientCols+` FROM patient WHERE personal_health_no = ?`, phn)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", phn, err)
	}
	return p, nil
}

func (repo *patientRepoSQLite) Update(ctx context.Context, p *Patient) error {
	return repo.writer.Do(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE patient
			SET nic = ?, name = ?, date_of_birth = ?, gender = ?, address = ?,
			    phone_number = ?, email = ?, emergency_contact_name = ?, emergency_contact_phone = ?
			WHERE personal_health_no = ?`,
			p.NIC, p.Name, p.DateOfBirth, p.Gender, p.Address,
			p.PhoneNumber, p.Email, p.EmergencyContactName, p.EmergencyContactPhone, p.PHN)
		if err != nil {
			return fmt.Errorf("update patient %s: %w", p.PHN, err)
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

func (repo *patientRepoSQLite) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY created_at DESC, personal_health_no LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
