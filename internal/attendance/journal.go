package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one journaled check-in attempt.
type Entry struct {
	ID           string    `json:"id"`
	EmployeeID   int       `json:"employee_id"`
	EmployeeName string    `json:"employee_name,omitempty"`
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Repository persists the check-in journal in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the journal table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkin_journal (
			id            UUID PRIMARY KEY,
			employee_id   INTEGER NOT NULL,
			employee_name TEXT NOT NULL DEFAULT '',
			success       BOOLEAN NOT NULL,
			message       TEXT NOT NULL DEFAULT '',
			recorded_at   TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// InsertEntry writes an entry. Re-delivered entries are ignored.
func (r *Repository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	if e.EmployeeID <= 0 {
		return Entry{}, errors.New("employee id required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkin_journal (id, employee_id, employee_name, success, message, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.EmployeeID, e.EmployeeName, e.Success, e.Message, e.RecordedAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// ListEntries returns the newest entries, optionally for one employee.
func (r *Repository) ListEntries(ctx context.Context, employeeID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, employee_id, employee_name, success, message, recorded_at FROM checkin_journal`
	args := []any{}
	clauses := []string{}
	if employeeID > 0 {
		clauses = append(clauses, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, employeeID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.Success, &e.Message, &e.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
