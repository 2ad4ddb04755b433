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

const enrollmentColumns = `e.id, e.student_id, e.section_id, e.status, e.waitlist_position, e.start_date, e.created_at, e.updated_at`

func scanEnrollment(row rowScanner) (*Enrollment, error) {
	e := &Enrollment{}
	var status string
	err := row.Scan(&e.ID, &e.StudentID, &e.SectionID, &status, &e.WaitlistPosition, &e.StartDate, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = enrollment.Status(status)
	if !e.Status.Valid() {
		return nil, fmt.Errorf("enrollment %s: unknown status %q", e.ID, status)
	}
	return e, nil
}

const rowQuery = `
	SELECT e.student_id, e.section_id, cs.day, cs.label, COALESCE(e.start_date, cs.start_date), e.status
	FROM enrollments e
	JOIN class_sections cs ON cs.id = e.section_id
`

// EnrollmentRows returns the reconciliation input for one student. The row start date
// is the enrollment's own start date, falling back to the section's.
func (r *Repository) EnrollmentRows(ctx context.Context, studentID uuid.UUID) ([]enrollment.Row, error) {
	return r.queryRows(ctx, rowQuery+" WHERE e.student_id = $1", studentID)
}

// AllEnrollmentRows returns the reconciliation input for every student.
func (r *Repository) AllEnrollmentRows(ctx context.Context) ([]enrollment.Row, error) {
	return r.queryRows(ctx, rowQuery+" ORDER BY e.student_id")
}

func (r *Repository) queryRows(ctx context.Context, query string, args ...interface{}) ([]enrollment.Row, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment rows: %w", err)
	}
	defer rows.Close()

	var out []enrollment.Row
	for rows.Next() {
		var (
			row    enrollment.Row
			day    string
			status string
			start  sql.NullTime
		)
		if err := rows.Scan(&row.StudentID, &row.SectionID, &day, &row.Label, &start, &status); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment row: %w", err)
		}
		if row.Day, err = enrollment.ParseDay(day); err != nil {
			return nil, fmt.Errorf("section %s: %w", row.SectionID, err)
		}
		row.Status = enrollment.Status(status)
		if start.Valid {
			row.StartDate = start.Time
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StudentEnrollments returns every enrollment of a student with its section.
func (r *Repository) StudentEnrollments(ctx context.Context, studentID uuid.UUID) ([]*EnrollmentDetail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+enrollmentColumns+`, `+sectionColumns+`
		FROM enrollments e
		JOIN class_sections cs ON cs.id = e.section_id
		WHERE e.student_id = $1
		ORDER BY e.status, cs.label, cs.day
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var out []*EnrollmentDetail
	for rows.Next() {
		e := &Enrollment{}
		sec := &Section{}
		var status, day string
		err := rows.Scan(
			&e.ID, &e.StudentID, &e.SectionID, &status, &e.WaitlistPosition, &e.StartDate, &e.CreatedAt, &e.UpdatedAt,
			&sec.ID, &sec.Name, &sec.Location, &day, &sec.Label, &sec.StartTime, &sec.StartDate, &sec.Capacity, &sec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		e.Status = enrollment.Status(status)
		if sec.Day, err = enrollment.ParseDay(day); err != nil {
			return nil, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		out = append(out, &EnrollmentDetail{Enrollment: e, Section: sec})
	}
	return out, rows.Err()
}

func (r *Repository) GetEnrollment(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRowContext(ctx, "SELECT "+enrollmentColumns+" FROM enrollments e WHERE e.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// Enroll puts a student into a section. The student gets an active seat while the
// section has capacity and joins the tail of the waitlist otherwise. A dropped row for
// the same section is reused.
func (r *Repository) Enroll(ctx context.Context, studentID, sectionID uuid.UUID, startDate sql.NullTime) (*Enrollment, error) {
	var result *Enrollment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		capacity, err := lockSection(ctx, tx, sectionID)
		if err != nil {
			return err
		}

		existing, err := findEnrollment(ctx, tx, studentID, sectionID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != enrollment.StatusDropped {
			return &DuplicateEnrollmentError{StudentID: studentID, SectionID: sectionID}
		}

		active, err := activeCount(ctx, tx, sectionID)
		if err != nil {
			return err
		}

		status := enrollment.StatusActive
		var pos sql.NullInt32
		if active >= capacity {
			status = enrollment.StatusWaitlisted
			next, err := nextWaitlistPosition(ctx, tx, sectionID)
			if err != nil {
				return err
			}
			pos = sql.NullInt32{Int32: next, Valid: true}
		}

		now := time.Now()
		if existing != nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE enrollments SET status = $1, waitlist_position = $2, start_date = $3, updated_at = $4
				WHERE id = $5
			`, string(status), pos, startDate, now, existing.ID)
			if err != nil {
				return fmt.Errorf("failed to re-enroll: %w", err)
			}
			existing.Status, existing.WaitlistPosition, existing.StartDate, existing.UpdatedAt = status, pos, startDate, now
			result = existing
			return nil
		}

		e := &Enrollment{
			ID:               uuid.New(),
			StudentID:        studentID,
			SectionID:        sectionID,
			Status:           status,
			WaitlistPosition: pos,
			StartDate:        startDate,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO enrollments (id, student_id, section_id, status, waitlist_position, start_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.ID, e.StudentID, e.SectionID, string(e.Status), e.WaitlistPosition, e.StartDate, now, now)
		if err != nil {
			return asDuplicateEnrollment(fmt.Errorf("failed to enroll: %w", err), studentID, sectionID)
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Drop marks an enrollment dropped. Dropping a waitlisted row closes its gap.
func (r *Repository) Drop(ctx context.Context, enrollmentID uuid.UUID) (*Enrollment, error) {
	return r.drop(ctx, enrollmentID, false)
}

func (r *Repository) drop(ctx context.Context, enrollmentID uuid.UUID, waitlistedOnly bool) (*Enrollment, error) {
	var dropped *Enrollment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		e, err := scanEnrollment(tx.QueryRowContext(ctx, "SELECT "+enrollmentColumns+" FROM enrollments e WHERE e.id = $1 FOR UPDATE", enrollmentID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load enrollment: %w", err)
		}
		if waitlistedOnly && e.Status != enrollment.StatusWaitlisted {
			return ErrNotWaitlisted
		}

		if err := setStatus(ctx, tx, e.ID, enrollment.StatusDropped); err != nil {
			return err
		}
		if e.Status == enrollment.StatusWaitlisted {
			if err := compactWaitlist(ctx, tx, e.SectionID, e.WaitlistPosition.Int32); err != nil {
				return err
			}
		}

		e.Status = enrollment.StatusDropped
		e.WaitlistPosition = sql.NullInt32{}
		dropped = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dropped, nil
}

// MoveStudent moves the student's active enrollment from one section to another.
// A waitlisted or dropped row the student already holds in the target is replaced.
func (r *Repository) MoveStudent(ctx context.Context, studentID, fromSectionID, toSectionID uuid.UUID, startDate sql.NullTime) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return moveInTx(ctx, tx, studentID, fromSectionID, toSectionID, startDate)
	})
}

// MoveStudentToSession moves every active enrollment of the student to the section at
// the same location and day carrying the target label. It returns how many
// enrollments changed section.
func (r *Repository) MoveStudentToSession(ctx context.Context, studentID uuid.UUID, label string) (int, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	moved := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT cs.id, cs.location, cs.day, cs.label
			FROM enrollments e
			JOIN class_sections cs ON cs.id = e.section_id
			WHERE e.student_id = $1 AND e.status = 'ACTIVE'
			ORDER BY cs.day
		`, studentID)
		if err != nil {
			return fmt.Errorf("failed to load active enrollments: %w", err)
		}

		type current struct {
			sectionID uuid.UUID
			location  string
			day       string
			label     string
		}
		var actives []current
		for rows.Next() {
			var c current
			if err := rows.Scan(&c.sectionID, &c.location, &c.day, &c.label); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan active enrollment: %w", err)
			}
			actives = append(actives, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(actives) == 0 {
			return ErrNotEnrolled
		}

		for _, c := range actives {
			if c.label == label {
				continue
			}
			var target uuid.UUID
			err := tx.QueryRowContext(ctx, `
				SELECT id FROM class_sections
				WHERE location = $1 AND day = $2 AND label = $3
				ORDER BY created_at
				LIMIT 1
			`, c.location, c.day, label).Scan(&target)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s %s session %s", ErrNoSuchSession, c.location, c.day, label)
			}
			if err != nil {
				return fmt.Errorf("failed to find target section: %w", err)
			}
			if err := moveInTx(ctx, tx, studentID, c.sectionID, target, sql.NullTime{}); err != nil {
				return err
			}
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func moveInTx(ctx context.Context, tx *sql.Tx, studentID, fromSectionID, toSectionID uuid.UUID, startDate sql.NullTime) error {
	if fromSectionID == toSectionID {
		return &DuplicateEnrollmentError{StudentID: studentID, SectionID: toSectionID}
	}

	capacity, err := lockSection(ctx, tx, toSectionID)
	if err != nil {
		return err
	}

	var sourceID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM enrollments
		WHERE student_id = $1 AND section_id = $2 AND status = 'ACTIVE'
		FOR UPDATE
	`, studentID, fromSectionID).Scan(&sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotEnrolled
	}
	if err != nil {
		return fmt.Errorf("failed to load source enrollment: %w", err)
	}

	existing, err := findEnrollment(ctx, tx, studentID, toSectionID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Status == enrollment.StatusActive {
			return &DuplicateEnrollmentError{StudentID: studentID, SectionID: toSectionID}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM enrollments WHERE id = $1", existing.ID); err != nil {
			return fmt.Errorf("failed to clear previous target enrollment: %w", err)
		}
		if existing.Status == enrollment.StatusWaitlisted {
			if err := compactWaitlist(ctx, tx, toSectionID, existing.WaitlistPosition.Int32); err != nil {
				return err
			}
		}
	}

	active, err := activeCount(ctx, tx, toSectionID)
	if err != nil {
		return err
	}
	if active >= capacity {
		return ErrSectionFull
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE enrollments SET section_id = $1, start_date = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, toSectionID, startDate, sourceID)
	if err != nil {
		return asDuplicateEnrollment(fmt.Errorf("failed to move enrollment: %w", err), studentID, toSectionID)
	}
	return nil
}

func findEnrollment(ctx context.Context, tx *sql.Tx, studentID, sectionID uuid.UUID) (*Enrollment, error) {
	e, err := scanEnrollment(tx.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+` FROM enrollments e
		WHERE e.student_id = $1 AND e.section_id = $2
		FOR UPDATE
	`, studentID, sectionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up enrollment: %w", err)
	}
	return e, nil
}

func setStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status enrollment.Status) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE enrollments SET status = $1, waitlist_position = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set enrollment status: %w", err)
	}
	return nil
}
