package models

import (
	"database/sql"
	"time"

	"dance-ops/internal/enrollment"
	"dance-ops/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// StoredView holds the denormalized schedule and tuition columns of a student row.
type StoredView struct {
	SelectedDays string
	SessionLabel string
	StartDate    sql.NullTime
	Frequency    int
	AmountOwed   decimal.Decimal
	Priced       bool
	ReconciledAt sql.NullTime
}

type Student struct {
	ID            uuid.UUID
	FirstName     string
	LastName      string
	ParentName    sql.NullString
	ParentEmail   sql.NullString
	ParentPhone   sql.NullString
	Location      string
	PaymentStatus pricing.PaymentStatus
	AmountPaid    decimal.Decimal
	Notes         sql.NullString
	View          StoredView
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

type Section struct {
	ID        uuid.UUID
	Name      string
	Location  string
	Day       enrollment.Day
	Label     string
	StartTime sql.NullString
	StartDate sql.NullTime
	Capacity  int
	CreatedAt time.Time
}

// SectionSummary is a section with its seat usage.
type SectionSummary struct {
	Section       *Section
	ActiveCount   int
	WaitlistCount int
}

// SeatsLeft never goes below zero.
func (s *SectionSummary) SeatsLeft() int {
	if left := s.Section.Capacity - s.ActiveCount; left > 0 {
		return left
	}
	return 0
}

type Enrollment struct {
	ID               uuid.UUID
	StudentID        uuid.UUID
	SectionID        uuid.UUID
	Status           enrollment.Status
	WaitlistPosition sql.NullInt32
	StartDate        sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EnrollmentDetail is an enrollment joined with its section.
type EnrollmentDetail struct {
	Enrollment *Enrollment
	Section    *Section
}

// WaitlistEntry is one queued student for a section.
type WaitlistEntry struct {
	EnrollmentID uuid.UUID
	StudentID    uuid.UUID
	StudentName  string
	ParentEmail  sql.NullString
	Position     int32
	CreatedAt    time.Time
}

type StudentDetail struct {
	Student     *Student
	Enrollments []*EnrollmentDetail
}

// StudentFilter narrows ListStudents. Zero values mean "no filter".
type StudentFilter struct {
	Status   string
	Location string
	Day      string
	Session  string
	Search   string
	Page     int
	PerPage  int
}

const (
	DefaultPerPage = 25
	MaxPerPage     = 200
)

// Normalize clamps paging to sane bounds.
func (f StudentFilter) Normalize() StudentFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	return f
}

// Offset is the row offset of the current page.
func (f StudentFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// NewStudent is the input for CreateStudent.
type NewStudent struct {
	FirstName   string
	LastName    string
	ParentName  string
	ParentEmail string
	ParentPhone string
	Location    string
	Notes       string
}

// NewSection is the input for CreateSection.
type NewSection struct {
	Name      string
	Location  string
	Day       enrollment.Day
	Label     string
	StartTime string
	StartDate sql.NullTime
	Capacity  int
}
