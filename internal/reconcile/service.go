package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dance-ops/internal/enrollment"
	"dance-ops/internal/metrics"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence the service needs. *models.Repository satisfies it.
type Store interface {
	GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	AllStudents(ctx context.Context, f models.StudentFilter) ([]*models.Student, error)
	EnrollmentRows(ctx context.Context, studentID uuid.UUID) ([]enrollment.Row, error)
	AllEnrollmentRows(ctx context.Context) ([]enrollment.Row, error)
	SaveView(ctx context.Context, id uuid.UUID, v models.StoredView) error
}

// Result summarizes a batch run.
type Result struct {
	Students int           `json:"students"`
	Updated  int           `json:"updated"`
	Unpriced int           `json:"unpriced"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

type Service struct {
	store   Store
	prices  *pricing.Table
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService wires the engine to storage. m may be nil.
func NewService(store Store, prices *pricing.Table, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, prices: prices, log: log, metrics: m, now: time.Now}
}

func (s *Service) Prices() *pricing.Table {
	return s.prices
}

// Student recomputes and persists one student's view.
func (s *Service) Student(ctx context.Context, id uuid.UUID) (*View, error) {
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.EnrollmentRows(ctx, id)
	if err != nil {
		return nil, err
	}

	v := Compute(st, rows, s.prices)
	if err := s.store.SaveView(ctx, id, v.Stored(s.now())); err != nil {
		s.observe("failed")
		return nil, err
	}
	s.record(v)
	return v, nil
}

// Preview computes a student's view without writing it.
func (s *Service) Preview(ctx context.Context, st *models.Student) (*View, error) {
	rows, err := s.store.EnrollmentRows(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	return Compute(st, rows, s.prices), nil
}

// All recomputes every student's view. A failed save is logged and counted; the batch
// carries on with the next student.
func (s *Service) All(ctx context.Context, trigger string) (Result, error) {
	start := s.now()
	res, err := s.all(ctx)
	res.Duration = s.now().Sub(start)

	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.ReconcileRuns.WithLabelValues(trigger, result).Inc()
		s.metrics.ReconcileDelay.Observe(res.Duration.Seconds())
		if err == nil {
			s.metrics.Unpriced.Set(float64(res.Unpriced))
		}
	}

	if err != nil {
		s.log.Error("reconcile run failed", zap.String("trigger", trigger), zap.Error(err))
		return res, err
	}
	s.log.Info("reconcile run finished",
		zap.String("trigger", trigger),
		zap.Int("students", res.Students),
		zap.Int("updated", res.Updated),
		zap.Int("unpriced", res.Unpriced),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (s *Service) all(ctx context.Context) (Result, error) {
	var res Result

	students, err := s.store.AllStudents(ctx, models.StudentFilter{})
	if err != nil {
		return res, fmt.Errorf("failed to load students: %w", err)
	}

	for _, listed := range students {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		// Student and rows are re-read so an edit made after the listing is not
		// overwritten by a stale view.
		st, err := s.store.GetStudent(ctx, listed.ID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		res.Students++
		var rows []enrollment.Row
		if err == nil {
			rows, err = s.store.EnrollmentRows(ctx, st.ID)
		}
		if err != nil {
			res.Failed++
			s.observe("failed")
			s.log.Warn("failed to load student", zap.String("student_id", listed.ID.String()), zap.Error(err))
			continue
		}

		v := Compute(st, rows, s.prices)
		if !v.Priced {
			res.Unpriced++
		}
		if err := s.store.SaveView(ctx, st.ID, v.Stored(s.now())); err != nil {
			res.Failed++
			s.observe("failed")
			s.log.Warn("failed to save student view", zap.String("student_id", st.ID.String()), zap.Error(err))
			continue
		}
		res.Updated++
		s.record(v)
	}
	return res, nil
}

type scheduleSet map[uuid.UUID]*enrollment.Schedule

// of returns the student's schedule, or an empty one when the student has no rows.
func (ss scheduleSet) of(id uuid.UUID) *enrollment.Schedule {
	if sched, ok := ss[id]; ok {
		return sched
	}
	return enrollment.ReconcileStudent(id, nil)
}

// load reads every student and reconciles all enrollment rows in one pass.
func (s *Service) load(ctx context.Context) ([]*models.Student, scheduleSet, error) {
	students, err := s.store.AllStudents(ctx, models.StudentFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load students: %w", err)
	}
	rows, err := s.store.AllEnrollmentRows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load enrollment rows: %w", err)
	}
	return students, enrollment.Reconcile(rows), nil
}

// Check compares every stored view with a fresh computation and returns the
// disagreements. Nothing is written.
func (s *Service) Check(ctx context.Context) ([]Mismatch, error) {
	students, schedules, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []Mismatch
	for _, st := range students {
		fresh := price(st, schedules.of(st.ID), s.prices).Stored(s.now())
		out = append(out, diff(st, fresh)...)
	}
	return out, nil
}

func (s *Service) record(v *View) {
	if !v.Priced {
		s.log.Warn("no price for student schedule",
			zap.String("student_id", v.StudentID.String()),
			zap.String("location", v.Location),
			zap.String("session", v.SessionLabel),
			zap.String("key", v.PriceKey),
		)
		s.observe("unpriced")
		return
	}
	s.observe("updated")
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.Reconciled.WithLabelValues(outcome).Inc()
	}
}
