package handlers

import (
	"context"
	"database/sql"

	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"
	"dance-ops/internal/reconcile"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the persistence the HTTP layer needs. *models.Repository satisfies it.
type Store interface {
	reconcile.Store

	ListStudents(ctx context.Context, f models.StudentFilter) ([]*models.Student, int, error)
	GetStudentDetail(ctx context.Context, id uuid.UUID) (*models.StudentDetail, error)
	CreateStudent(ctx context.Context, in models.NewStudent) (*models.Student, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status pricing.PaymentStatus, amountPaid decimal.Decimal) error

	ListSections(ctx context.Context, location string) ([]*models.SectionSummary, error)
	GetSection(ctx context.Context, id uuid.UUID) (*models.Section, error)
	CreateSection(ctx context.Context, in models.NewSection) (*models.Section, error)
	StudentsInSection(ctx context.Context, sectionID uuid.UUID, status enrollment.Status) ([]*models.Student, error)

	GetEnrollment(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	Enroll(ctx context.Context, studentID, sectionID uuid.UUID, startDate sql.NullTime) (*models.Enrollment, error)
	Drop(ctx context.Context, enrollmentID uuid.UUID) (*models.Enrollment, error)
	MoveStudent(ctx context.Context, studentID, fromSectionID, toSectionID uuid.UUID, startDate sql.NullTime) error
	MoveStudentToSession(ctx context.Context, studentID uuid.UUID, label string) (int, error)

	Waitlist(ctx context.Context, sectionID uuid.UUID) ([]*models.WaitlistEntry, error)
	PromoteFromWaitlist(ctx context.Context, sectionID uuid.UUID) (*models.Enrollment, error)
	RemoveFromWaitlist(ctx context.Context, enrollmentID uuid.UUID) (*models.Enrollment, error)

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	Ping(ctx context.Context) error
}

var _ Store = (*models.Repository)(nil)
