package handlers

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store with the same capacity and waitlist rules as the
// SQL repository.
type fakeStore struct {
	mu          sync.Mutex
	students    map[uuid.UUID]*models.Student
	sections    map[uuid.UUID]*models.Section
	enrollments map[uuid.UUID]*models.Enrollment
	users       map[string]*models.User
	pingErr     error
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		students:    map[uuid.UUID]*models.Student{},
		sections:    map[uuid.UUID]*models.Section{},
		enrollments: map[uuid.UUID]*models.Enrollment{},
		users:       map[string]*models.User{},
	}
}

func (f *fakeStore) addSection(name, location string, day enrollment.Day, label string, capacity int) *models.Section {
	sec := &models.Section{ID: uuid.New(), Name: name, Location: location, Day: day, Label: label, Capacity: capacity, CreatedAt: time.Now()}
	f.sections[sec.ID] = sec
	return sec
}

func (f *fakeStore) addStudent(first, last, location, email string) *models.Student {
	st, _ := f.CreateStudent(context.Background(), models.NewStudent{FirstName: first, LastName: last, Location: location, ParentEmail: email})
	return st
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetStudent(_ context.Context, id uuid.UUID) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStore) AllStudents(_ context.Context, filter models.StudentFilter) ([]*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	statuses := map[string]bool{}
	for _, s := range strings.Split(filter.Status, ",") {
		if s != "" {
			statuses[s] = true
		}
	}

	var out []*models.Student
	for _, st := range f.students {
		if len(statuses) > 0 && !statuses[string(st.PaymentStatus)] {
			continue
		}
		if filter.Location != "" && !strings.EqualFold(filter.Location, st.Location) {
			continue
		}
		if filter.Session != "" && !strings.EqualFold(filter.Session, st.View.SessionLabel) {
			continue
		}
		if filter.Day != "" && !strings.Contains(","+st.View.SelectedDays+",", ","+filter.Day+",") {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(st.FullName()), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (f *fakeStore) ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int, error) {
	filter = filter.Normalize()
	all, _ := f.AllStudents(ctx, filter)
	start := filter.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *fakeStore) rowsLocked(match func(*models.Enrollment) bool) []enrollment.Row {
	var rows []enrollment.Row
	for _, e := range f.enrollments {
		if !match(e) {
			continue
		}
		sec := f.sections[e.SectionID]
		start := sec.StartDate
		if e.StartDate.Valid {
			start = e.StartDate
		}
		rows = append(rows, enrollment.Row{
			StudentID: e.StudentID,
			SectionID: e.SectionID,
			Day:       sec.Day,
			Label:     sec.Label,
			StartDate: start.Time,
			Status:    e.Status,
		})
	}
	return rows
}

func (f *fakeStore) EnrollmentRows(_ context.Context, studentID uuid.UUID) ([]enrollment.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rowsLocked(func(e *models.Enrollment) bool { return e.StudentID == studentID }), nil
}

func (f *fakeStore) AllEnrollmentRows(context.Context) ([]enrollment.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rowsLocked(func(*models.Enrollment) bool { return true }), nil
}

func (f *fakeStore) SaveView(_ context.Context, id uuid.UUID, v models.StoredView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return models.ErrNotFound
	}
	st.View = v
	return nil
}

func (f *fakeStore) GetStudentDetail(ctx context.Context, id uuid.UUID) (*models.StudentDetail, error) {
	st, err := f.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	detail := &models.StudentDetail{Student: st}
	for _, e := range f.enrollments {
		if e.StudentID == id {
			cp := *e
			detail.Enrollments = append(detail.Enrollments, &models.EnrollmentDetail{Enrollment: &cp, Section: f.sections[e.SectionID]})
		}
	}
	return detail, nil
}

func (f *fakeStore) CreateStudent(_ context.Context, in models.NewStudent) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &models.Student{
		ID:            uuid.New(),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		ParentEmail:   sql.NullString{String: in.ParentEmail, Valid: in.ParentEmail != ""},
		Location:      in.Location,
		PaymentStatus: pricing.StatusUnpaid,
		AmountPaid:    decimal.Zero,
		View:          models.StoredView{AmountOwed: decimal.Zero, Priced: true},
		CreatedAt:     time.Now(),
	}
	f.students[st.ID] = st
	cp := *st
	return &cp, nil
}

func (f *fakeStore) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status pricing.PaymentStatus, amountPaid decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.students[id]
	if !ok {
		return models.ErrNotFound
	}
	if status == pricing.StatusUnpaid {
		amountPaid = decimal.Zero
	}
	st.PaymentStatus, st.AmountPaid = status, amountPaid
	return nil
}

func (f *fakeStore) countLocked(sectionID uuid.UUID, status enrollment.Status) int {
	n := 0
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == status {
			n++
		}
	}
	return n
}

func (f *fakeStore) ListSections(_ context.Context, location string) ([]*models.SectionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SectionSummary
	for _, sec := range f.sections {
		if location != "" && !strings.EqualFold(location, sec.Location) {
			continue
		}
		out = append(out, &models.SectionSummary{
			Section:       sec,
			ActiveCount:   f.countLocked(sec.ID, enrollment.StatusActive),
			WaitlistCount: f.countLocked(sec.ID, enrollment.StatusWaitlisted),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Section.Name < out[j].Section.Name })
	return out, nil
}

func (f *fakeStore) GetSection(_ context.Context, id uuid.UUID) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sec, ok := f.sections[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return sec, nil
}

func (f *fakeStore) CreateSection(_ context.Context, in models.NewSection) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sec := &models.Section{
		ID:        uuid.New(),
		Name:      in.Name,
		Location:  in.Location,
		Day:       in.Day,
		Label:     strings.ToUpper(in.Label),
		StartTime: sql.NullString{String: in.StartTime, Valid: in.StartTime != ""},
		StartDate: in.StartDate,
		Capacity:  in.Capacity,
	}
	f.sections[sec.ID] = sec
	return sec, nil
}

func (f *fakeStore) StudentsInSection(_ context.Context, sectionID uuid.UUID, status enrollment.Status) ([]*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Student
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == status {
			out = append(out, f.students[e.StudentID])
		}
	}
	return out, nil
}

func (f *fakeStore) GetEnrollment(_ context.Context, id uuid.UUID) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) findLocked(studentID, sectionID uuid.UUID) *models.Enrollment {
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.SectionID == sectionID {
			return e
		}
	}
	return nil
}

func (f *fakeStore) Enroll(_ context.Context, studentID, sectionID uuid.UUID, startDate sql.NullTime) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sec, ok := f.sections[sectionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	e := f.findLocked(studentID, sectionID)
	if e != nil && e.Status != enrollment.StatusDropped {
		return nil, &models.DuplicateEnrollmentError{StudentID: studentID, SectionID: sectionID}
	}
	if e == nil {
		e = &models.Enrollment{ID: uuid.New(), StudentID: studentID, SectionID: sectionID, CreatedAt: time.Now()}
		f.enrollments[e.ID] = e
	}
	active := f.countLocked(sectionID, enrollment.StatusActive)
	waiting := f.countLocked(sectionID, enrollment.StatusWaitlisted)
	e.StartDate = startDate
	e.Status = enrollment.StatusActive
	e.WaitlistPosition = sql.NullInt32{}
	if active >= sec.Capacity {
		e.Status = enrollment.StatusWaitlisted
		e.WaitlistPosition = sql.NullInt32{Int32: int32(waiting + 1), Valid: true}
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) compactLocked(sectionID uuid.UUID, vacated int32) {
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == enrollment.StatusWaitlisted && e.WaitlistPosition.Int32 > vacated {
			e.WaitlistPosition.Int32--
		}
	}
}

func (f *fakeStore) Drop(_ context.Context, id uuid.UUID) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if e.Status == enrollment.StatusWaitlisted {
		f.compactLocked(e.SectionID, e.WaitlistPosition.Int32)
	}
	e.Status = enrollment.StatusDropped
	e.WaitlistPosition = sql.NullInt32{}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) MoveStudent(_ context.Context, studentID, from, to uuid.UUID, startDate sql.NullTime) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.sections[to]
	if !ok {
		return models.ErrNotFound
	}
	src := f.findLocked(studentID, from)
	if src == nil || src.Status != enrollment.StatusActive {
		return models.ErrNotEnrolled
	}
	if existing := f.findLocked(studentID, to); existing != nil {
		if existing.Status == enrollment.StatusActive {
			return &models.DuplicateEnrollmentError{StudentID: studentID, SectionID: to}
		}
		delete(f.enrollments, existing.ID)
	}
	if f.countLocked(to, enrollment.StatusActive) >= target.Capacity {
		return models.ErrSectionFull
	}
	src.SectionID, src.StartDate = to, startDate
	return nil
}

func (f *fakeStore) MoveStudentToSession(ctx context.Context, studentID uuid.UUID, label string) (int, error) {
	f.mu.Lock()
	var moves [][2]uuid.UUID
	for _, e := range f.enrollments {
		if e.StudentID != studentID || e.Status != enrollment.StatusActive {
			continue
		}
		cur := f.sections[e.SectionID]
		if cur.Label == label {
			continue
		}
		var target *models.Section
		for _, s := range f.sections {
			if s.Location == cur.Location && s.Day == cur.Day && s.Label == label {
				target = s
			}
		}
		if target == nil {
			f.mu.Unlock()
			return 0, models.ErrNoSuchSession
		}
		moves = append(moves, [2]uuid.UUID{cur.ID, target.ID})
	}
	f.mu.Unlock()

	for _, m := range moves {
		if err := f.MoveStudent(ctx, studentID, m[0], m[1], sql.NullTime{}); err != nil {
			return 0, err
		}
	}
	return len(moves), nil
}

func (f *fakeStore) Waitlist(_ context.Context, sectionID uuid.UUID) ([]*models.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.WaitlistEntry
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == enrollment.StatusWaitlisted {
			st := f.students[e.StudentID]
			out = append(out, &models.WaitlistEntry{EnrollmentID: e.ID, StudentID: st.ID, StudentName: st.FullName(), ParentEmail: st.ParentEmail, Position: e.WaitlistPosition.Int32})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeStore) PromoteFromWaitlist(_ context.Context, sectionID uuid.UUID) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sec, ok := f.sections[sectionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if f.countLocked(sectionID, enrollment.StatusActive) >= sec.Capacity {
		return nil, models.ErrSectionFull
	}
	var head *models.Enrollment
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == enrollment.StatusWaitlisted &&
			(head == nil || e.WaitlistPosition.Int32 < head.WaitlistPosition.Int32) {
			head = e
		}
	}
	if head == nil {
		return nil, models.ErrWaitlistEmpty
	}
	f.compactLocked(sectionID, head.WaitlistPosition.Int32)
	head.Status = enrollment.StatusActive
	head.WaitlistPosition = sql.NullInt32{}
	cp := *head
	return &cp, nil
}

func (f *fakeStore) RemoveFromWaitlist(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	e, err := f.GetEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != enrollment.StatusWaitlisted {
		return nil, models.ErrNotWaitlisted
	}
	return f.Drop(ctx, id)
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func nullTime() sql.NullTime {
	return sql.NullTime{}
}
