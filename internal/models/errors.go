package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrSectionFull   = errors.New("section is full")
	ErrNotEnrolled   = errors.New("student is not actively enrolled in the section")
	ErrWaitlistEmpty = errors.New("waitlist is empty")
	ErrNotWaitlisted = errors.New("enrollment is not on a waitlist")
	ErrNoSuchSession = errors.New("no matching section in the target session")
)

const uniqueViolation = "23505"

// DuplicateEnrollmentError is returned when a student already has a row for a section.
type DuplicateEnrollmentError struct {
	StudentID uuid.UUID
	SectionID uuid.UUID
}

func (e *DuplicateEnrollmentError) Error() string {
	return fmt.Sprintf("student %s is already enrolled in section %s", e.StudentID, e.SectionID)
}

// EmailAlreadyExistsError represents a users.email uniqueness violation.
type EmailAlreadyExistsError struct {
	Email string
}

func (e *EmailAlreadyExistsError) Error() string {
	return fmt.Sprintf("email %s already exists", e.Email)
}

// uniqueConstraint returns the violated constraint name when err is a PostgreSQL
// unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return strings.ToLower(pgErr.ConstraintName), true
	}
	return "", false
}

// asDuplicateEnrollment maps a unique violation on enrollments to
// DuplicateEnrollmentError and passes every other error through.
func asDuplicateEnrollment(err error, studentID, sectionID uuid.UUID) error {
	if name, ok := uniqueConstraint(err); ok && strings.Contains(name, "enrollments") {
		return &DuplicateEnrollmentError{StudentID: studentID, SectionID: sectionID}
	}
	return err
}

func asEmailExists(err error, email string) error {
	if name, ok := uniqueConstraint(err); ok && strings.Contains(name, "email") {
		return &EmailAlreadyExistsError{Email: email}
	}
	return err
}

// IsDuplicateEnrollment reports whether err wraps a DuplicateEnrollmentError.
func IsDuplicateEnrollment(err error) bool {
	var dup *DuplicateEnrollmentError
	return errors.As(err, &dup)
}
