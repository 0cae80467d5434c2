package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"visa-onboarding-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const foreignKeyViolation = "23503"

const documentColumns = `id, employee_id, doc_type, filename, status, feedback, storage_ref, created_at, reviewed_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOnboardingApprovalStatus(ctx context.Context, employeeID string) (domain.OnboardingStatus, error) {
	var status domain.OnboardingStatus
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(o.status, $2)
		FROM employees e
		LEFT JOIN onboarding_status o ON o.employee_id = e.id
		WHERE e.id = $1
	`, employeeID, domain.OnboardingPending)
	if err := row.Scan(&status); err != nil {
		return "", notFound(err, "employee", employeeID)
	}
	return status, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, employeeID string) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM visa_documents
		WHERE employee_id = $1
		ORDER BY created_at ASC, id ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (domain.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM visa_documents
		WHERE id = $1
	`, documentID)
	rec, err := scanDocument(row)
	if err != nil {
		return domain.DocumentRecord{}, notFound(err, "document", documentID)
	}
	return rec, nil
}

func (s *PostgresStore) ReplaceDocument(ctx context.Context, rec domain.DocumentRecord) ([]domain.DocumentRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		DELETE FROM visa_documents
		WHERE employee_id = $1 AND doc_type = $2
		RETURNING `+documentColumns, rec.EmployeeID, rec.Type)
	if err != nil {
		return nil, fmt.Errorf("delete superseded documents: %w", err)
	}
	removed, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan superseded documents: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO visa_documents (id, employee_id, doc_type, filename, status, feedback, storage_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.EmployeeID, rec.Type, rec.Filename, rec.Status, rec.Feedback, rec.StorageRef, rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return nil, fmt.Errorf("employee %s: %w", rec.EmployeeID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *PostgresStore) SetDocumentStatus(ctx context.Context, documentID string, status domain.DocumentStatus, reviewedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE visa_documents
		SET status = $2, reviewed_at = $3, updated_at = NOW()
		WHERE id = $1
	`, documentID, status, reviewedAt)
	if err != nil {
		return err
	}
	return requireAffected(res, "document", documentID)
}

func (s *PostgresStore) SetDocumentFeedback(ctx context.Context, documentID string, feedback string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE visa_documents
		SET feedback = $2, updated_at = NOW()
		WHERE id = $1
	`, documentID, feedback)
	if err != nil {
		return err
	}
	return requireAffected(res, "document", documentID)
}

func (s *PostgresStore) ListEmployeesWithDocuments(ctx context.Context) ([]domain.EmployeeDocuments, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.first_name, e.last_name, e.preferred_name, e.email, e.visa_title,
		       e.auth_start_date, e.auth_end_date, COALESCE(o.status, $1)
		FROM employees e
		LEFT JOIN onboarding_status o ON o.employee_id = e.id
		ORDER BY e.id ASC
	`, domain.OnboardingPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.EmployeeDocuments, 0)
	index := make(map[string]int)
	ids := make([]string, 0)
	for rows.Next() {
		var emp domain.Employee
		var start, end sql.NullTime
		if err := rows.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.PreferredName, &emp.Email, &emp.VisaTitle,
			&start, &end, &emp.OnboardingStatus); err != nil {
			return nil, err
		}
		emp.AuthStartDate = nullTimePtr(start)
		emp.AuthEndDate = nullTimePtr(end)
		index[emp.ID] = len(out)
		ids = append(ids, emp.ID)
		out = append(out, domain.EmployeeDocuments{Employee: emp})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	docRows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM visa_documents
		WHERE employee_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	docs, err := scanDocuments(docRows)
	if err != nil {
		return nil, err
	}
	for _, rec := range docs {
		if i, ok := index[rec.EmployeeID]; ok {
			out[i].Documents = append(out[i].Documents, rec)
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var reviewedAt sql.NullTime
	if err := row.Scan(
		&rec.ID,
		&rec.EmployeeID,
		&rec.Type,
		&rec.Filename,
		&rec.Status,
		&rec.Feedback,
		&rec.StorageRef,
		&rec.CreatedAt,
		&reviewedAt,
	); err != nil {
		return domain.DocumentRecord{}, err
	}
	rec.ReviewedAt = nullTimePtr(reviewedAt)
	return rec, nil
}

func scanDocuments(rows *sql.Rows) ([]domain.DocumentRecord, error) {
	defer rows.Close()
	out := make([]domain.DocumentRecord, 0)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return err
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
