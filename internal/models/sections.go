package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dance-ops/internal/enrollment"

	"github.com/google/uuid"
)

const sectionColumns = `cs.id, cs.name, cs.location, cs.day, cs.label, cs.start_time, cs.start_date, cs.capacity, cs.created_at`

func scanSection(row rowScanner) (*Section, error) {
	sec := &Section{}
	var day string
	err := row.Scan(&sec.ID, &sec.Name, &sec.Location, &day, &sec.Label, &sec.StartTime, &sec.StartDate, &sec.Capacity, &sec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sec.Day, err = enrollment.ParseDay(day); err != nil {
		return nil, fmt.Errorf("section %s: %w", sec.ID, err)
	}
	return sec, nil
}

// ListSections returns sections with their active and waitlisted counts. An empty
// location lists every section.
func (r *Repository) ListSections(ctx context.Context, location string) ([]*SectionSummary, error) {
	query := `
		SELECT ` + sectionColumns + `,
			COUNT(e.id) FILTER (WHERE e.status = 'ACTIVE'),
			COUNT(e.id) FILTER (WHERE e.status = 'WAITLISTED')
		FROM class_sections cs
		LEFT JOIN enrollments e ON e.section_id = cs.id
	`
	var args []interface{}
	if location != "" {
		query += " WHERE LOWER(cs.location) = LOWER($1)"
		args = append(args, location)
	}
	query += " GROUP BY cs.id ORDER BY cs.location, cs.label, cs.day, cs.start_time"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var out []*SectionSummary
	for rows.Next() {
		sec := &Section{}
		sum := &SectionSummary{Section: sec}
		var day string
		err := rows.Scan(&sec.ID, &sec.Name, &sec.Location, &day, &sec.Label, &sec.StartTime,
			&sec.StartDate, &sec.Capacity, &sec.CreatedAt, &sum.ActiveCount, &sum.WaitlistCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		if sec.Day, err = enrollment.ParseDay(day); err != nil {
			return nil, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (r *Repository) GetSection(ctx context.Context, id uuid.UUID) (*Section, error) {
	sec, err := scanSection(r.db.QueryRowContext(ctx, "SELECT "+sectionColumns+" FROM class_sections cs WHERE cs.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	return sec, nil
}

func (r *Repository) CreateSection(ctx context.Context, in NewSection) (*Section, error) {
	sec := &Section{
		ID:        uuid.New(),
		Name:      in.Name,
		Location:  in.Location,
		Day:       in.Day,
		Label:     strings.ToUpper(in.Label),
		StartTime: nullString(in.StartTime),
		StartDate: in.StartDate,
		Capacity:  in.Capacity,
		CreatedAt: time.Now(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_sections (id, name, location, day, label, start_time, start_date, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sec.ID, sec.Name, sec.Location, sec.Day.String(), sec.Label, sec.StartTime, sec.StartDate, sec.Capacity, sec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}
	return sec, nil
}

// StudentsInSection returns the students holding an enrollment with the given status.
func (r *Repository) StudentsInSection(ctx context.Context, sectionID uuid.UUID, status enrollment.Status) ([]*Student, error) {
	return r.queryStudents(ctx, `
		SELECT`+studentColumns+`
		FROM students s
		JOIN enrollments e ON e.student_id = s.id
		WHERE e.section_id = $1 AND e.status = $2
		ORDER BY s.last_name, s.first_name
	`, sectionID, string(status))
}

// Waitlist returns the queue for a section, head first.
func (r *Repository) Waitlist(ctx context.Context, sectionID uuid.UUID) ([]*WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, s.id, s.first_name || ' ' || s.last_name, s.parent_email, e.waitlist_position, e.created_at
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		WHERE e.section_id = $1 AND e.status = 'WAITLISTED'
		ORDER BY e.waitlist_position, e.created_at
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist: %w", err)
	}
	defer rows.Close()

	var entries []*WaitlistEntry
	for rows.Next() {
		w := &WaitlistEntry{}
		var pos sql.NullInt32
		if err := rows.Scan(&w.EnrollmentID, &w.StudentID, &w.StudentName, &w.ParentEmail, &pos, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		w.Position = pos.Int32
		entries = append(entries, w)
	}
	return entries, rows.Err()
}

// PromoteFromWaitlist gives the head of the section's queue an active seat.
func (r *Repository) PromoteFromWaitlist(ctx context.Context, sectionID uuid.UUID) (*Enrollment, error) {
	var promoted *Enrollment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		capacity, err := lockSection(ctx, tx, sectionID)
		if err != nil {
			return err
		}
		active, err := activeCount(ctx, tx, sectionID)
		if err != nil {
			return err
		}
		if active >= capacity {
			return ErrSectionFull
		}

		head, err := scanEnrollment(tx.QueryRowContext(ctx, `
			SELECT `+enrollmentColumns+` FROM enrollments e
			WHERE e.section_id = $1 AND e.status = 'WAITLISTED'
			ORDER BY e.waitlist_position, e.created_at
			LIMIT 1
			FOR UPDATE
		`, sectionID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrWaitlistEmpty
		}
		if err != nil {
			return fmt.Errorf("failed to load waitlist head: %w", err)
		}

		if err := setStatus(ctx, tx, head.ID, enrollment.StatusActive); err != nil {
			return err
		}
		if err := compactWaitlist(ctx, tx, sectionID, head.WaitlistPosition.Int32); err != nil {
			return err
		}

		head.Status = enrollment.StatusActive
		head.WaitlistPosition = sql.NullInt32{}
		promoted = head
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// RemoveFromWaitlist drops a waitlisted enrollment and closes the gap in the queue.
func (r *Repository) RemoveFromWaitlist(ctx context.Context, enrollmentID uuid.UUID) (*Enrollment, error) {
	return r.drop(ctx, enrollmentID, true)
}

func lockSection(ctx context.Context, tx *sql.Tx, sectionID uuid.UUID) (int, error) {
	var capacity int
	err := tx.QueryRowContext(ctx, "SELECT capacity FROM class_sections WHERE id = $1 FOR UPDATE", sectionID).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock section: %w", err)
	}
	return capacity, nil
}

func activeCount(ctx context.Context, tx *sql.Tx, sectionID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = 'ACTIVE'", sectionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active enrollments: %w", err)
	}
	return n, nil
}

func nextWaitlistPosition(ctx context.Context, tx *sql.Tx, sectionID uuid.UUID) (int32, error) {
	var pos int32
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(waitlist_position), 0) + 1 FROM enrollments
		WHERE section_id = $1 AND status = 'WAITLISTED'
	`, sectionID).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to compute waitlist position: %w", err)
	}
	return pos, nil
}

// compactWaitlist shifts every entry behind a vacated position forward by one.
func compactWaitlist(ctx context.Context, tx *sql.Tx, sectionID uuid.UUID, vacated int32) error {
	if vacated <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE enrollments SET waitlist_position = waitlist_position - 1, updated_at = CURRENT_TIMESTAMP
		WHERE section_id = $1 AND status = 'WAITLISTED' AND waitlist_position > $2
	`, sectionID, vacated)
	if err != nil {
		return fmt.Errorf("failed to compact waitlist: %w", err)
	}
	return nil
}
