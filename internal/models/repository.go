package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dance-ops/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Repository issues the SQL behind every admin operation.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const studentColumns = `
	s.id, s.first_name, s.last_name, s.parent_name, s.parent_email, s.parent_phone,
	s.location, s.payment_status, s.amount_paid, s.notes,
	s.selected_days, s.session_label, s.start_date, s.frequency, s.amount_owed, s.priced, s.reconciled_at,
	s.created_at, s.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*Student, error) {
	s := &Student{}
	var status string
	err := row.Scan(
		&s.ID, &s.FirstName, &s.LastName, &s.ParentName, &s.ParentEmail, &s.ParentPhone,
		&s.Location, &status, &s.AmountPaid, &s.Notes,
		&s.View.SelectedDays, &s.View.SessionLabel, &s.View.StartDate, &s.View.Frequency,
		&s.View.AmountOwed, &s.View.Priced, &s.View.ReconciledAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PaymentStatus = pricing.PaymentStatus(status)
	return s, nil
}

// studentListQuery builds the filtered SELECT and its matching COUNT. When paginate is
// false the page window is left off so exports see every matching row.
func studentListQuery(f StudentFilter, paginate bool) (query, countQuery string, args []interface{}) {
	where := " WHERE 1=1"
	argIndex := 1

	if f.Status != "" {
		var placeholders []string
		for _, st := range strings.Split(f.Status, ",") {
			st = strings.ToUpper(strings.TrimSpace(st))
			if st == "" {
				continue
			}
			placeholders = append(placeholders, fmt.Sprintf("$%d", argIndex))
			args = append(args, st)
			argIndex++
		}
		if len(placeholders) > 0 {
			where += " AND s.payment_status IN (" + strings.Join(placeholders, ", ") + ")"
		}
	}

	if f.Location != "" {
		where += fmt.Sprintf(" AND LOWER(s.location) = LOWER($%d)", argIndex)
		args = append(args, f.Location)
		argIndex++
	}

	// selected_days is stored as "monday,wednesday"
	if f.Day != "" {
		where += fmt.Sprintf(" AND (',' || s.selected_days || ',') LIKE $%d", argIndex)
		args = append(args, "%,"+strings.ToLower(f.Day)+",%")
		argIndex++
	}

	if f.Session != "" {
		where += fmt.Sprintf(" AND s.session_label = $%d", argIndex)
		args = append(args, strings.ToUpper(f.Session))
		argIndex++
	}

	if f.Search != "" {
		where += fmt.Sprintf(" AND (LOWER(s.first_name || ' ' || s.last_name) LIKE LOWER($%d) ESCAPE '\\' OR LOWER(COALESCE(s.parent_email, '')) LIKE LOWER($%d) ESCAPE '\\' OR COALESCE(s.parent_phone, '') LIKE $%d ESCAPE '\\')", argIndex, argIndex, argIndex)
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		argIndex++
	}

	countQuery = "SELECT COUNT(*) FROM students s" + where
	query = "SELECT" + studentColumns + " FROM students s" + where + " ORDER BY s.last_name, s.first_name, s.id"
	if paginate {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PerPage, f.Offset())
	}
	return query, countQuery, args
}

// ListStudents returns one page of students and the total number matching the filter.
func (r *Repository) ListStudents(ctx context.Context, f StudentFilter) ([]*Student, int, error) {
	f = f.Normalize()
	query, countQuery, args := studentListQuery(f, true)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	students, err := r.queryStudents(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// AllStudents returns every student matching the filter, ignoring paging.
func (r *Repository) AllStudents(ctx context.Context, f StudentFilter) ([]*Student, error) {
	query, _, args := studentListQuery(f, false)
	return r.queryStudents(ctx, query, args...)
}

func (r *Repository) queryStudents(ctx context.Context, query string, args ...interface{}) ([]*Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []*Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return students, nil
}

func (r *Repository) GetStudent(ctx context.Context, id uuid.UUID) (*Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx, "SELECT"+studentColumns+" FROM students s WHERE s.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// GetStudentDetail returns the student with every enrollment and its section.
func (r *Repository) GetStudentDetail(ctx context.Context, id uuid.UUID) (*StudentDetail, error) {
	student, err := r.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	enrollments, err := r.StudentEnrollments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StudentDetail{Student: student, Enrollments: enrollments}, nil
}

func (r *Repository) CreateStudent(ctx context.Context, in NewStudent) (*Student, error) {
	now := time.Now()
	s := &Student{
		ID:            uuid.New(),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		ParentName:    nullString(in.ParentName),
		ParentEmail:   nullString(in.ParentEmail),
		ParentPhone:   nullString(in.ParentPhone),
		Location:      in.Location,
		PaymentStatus: pricing.StatusUnpaid,
		AmountPaid:    decimal.Zero,
		Notes:         nullString(in.Notes),
		View:          StoredView{AmountOwed: decimal.Zero, Priced: true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, first_name, last_name, parent_name, parent_email, parent_phone,
			location, payment_status, amount_paid, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.ID, s.FirstName, s.LastName, s.ParentName, s.ParentEmail, s.ParentPhone,
		s.Location, string(s.PaymentStatus), s.AmountPaid, s.Notes, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return s, nil
}

// UpdatePaymentStatus records the staff-entered payment state. Amount paid is kept
// as entered for PARTIAL and reset to zero for UNPAID.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status pricing.PaymentStatus, amountPaid decimal.Decimal) error {
	if status == pricing.StatusUnpaid {
		amountPaid = decimal.Zero
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET payment_status = $1, amount_paid = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, string(status), amountPaid, id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return requireOneRow(res)
}

// SaveView writes the denormalized schedule and tuition columns.
func (r *Repository) SaveView(ctx context.Context, id uuid.UUID, v StoredView) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET selected_days = $1, session_label = $2, start_date = $3, frequency = $4,
			amount_owed = $5, priced = $6, reconciled_at = $7
		WHERE id = $8
	`, v.SelectedDays, v.SessionLabel, v.StartDate, v.Frequency, v.AmountOwed, v.Priced, v.ReconciledAt, id)
	if err != nil {
		return fmt.Errorf("failed to save student view: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
