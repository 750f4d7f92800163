// Package attendancetest provides an in-memory attendance store for tests.
package attendancetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	model "github.com/nsut-attendance/backend/models/attendance"
	"github.com/nsut-attendance/backend/models/department"
	"github.com/nsut-attendance/backend/pkg/attendance"
)

type recordKey struct {
	studentID int64
	subjectID int64
	date      string
}

// MemStore mirrors the PostgreSQL store's semantics: foreign keys are checked
// before anything changes, and a replace is all-or-nothing.
type MemStore struct {
	mu       sync.Mutex
	students map[int64]department.Student
	subjects map[int64]department.Subject
	teachers map[int64]struct{}
	records  map[recordKey]model.Record
	nextID   int64

	// Err, when set, is returned by every call, as if the database were down.
	Err error
	// Calls counts store calls of any kind.
	Calls int
}

var _ attendance.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		students: make(map[int64]department.Student),
		subjects: make(map[int64]department.Subject),
		teachers: make(map[int64]struct{}),
		records:  make(map[recordKey]model.Record),
	}
}

func (m *MemStore) AddStudent(s department.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
}

func (m *MemStore) AddSubject(s department.Subject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[s.ID] = s
}

func (m *MemStore) AddTeacher(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[id] = struct{}{}
}

// Records returns the stored records of one scope ordered by student id.
func (m *MemStore) Records(scope model.Scope) []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Record
	for _, r := range m.records {
		if r.SubjectID == scope.SubjectID && r.Date.Equal(scope.Date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

func (m *MemStore) begin(ctx context.Context) error {
	m.Calls++
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if m.Err != nil {
		return fmt.Errorf("%w: %w", attendance.ErrStoreUnavailable, m.Err)
	}
	return nil
}

func (m *MemStore) ReplaceScope(ctx context.Context, scope model.Scope, teacherID int64, entries []model.Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx); err != nil {
		return 0, err
	}

	if _, ok := m.subjects[scope.SubjectID]; !ok {
		return 0, fmt.Errorf("%w: subject %d", attendance.ErrUnknownReference, scope.SubjectID)
	}
	if _, ok := m.teachers[teacherID]; !ok {
		return 0, fmt.Errorf("%w: teacher %d", attendance.ErrUnknownReference, teacherID)
	}
	for _, e := range entries {
		if _, ok := m.students[e.StudentID]; !ok {
			return 0, fmt.Errorf("%w: student %d", attendance.ErrUnknownReference, e.StudentID)
		}
	}

	day := scope.Date.Format("2006-01-02")
	for k := range m.records {
		if k.subjectID == scope.SubjectID && k.date == day {
			delete(m.records, k)
		}
	}
	for _, e := range entries {
		m.nextID++
		m.records[recordKey{e.StudentID, scope.SubjectID, day}] = model.Record{
			ID:        m.nextID,
			StudentID: e.StudentID,
			SubjectID: scope.SubjectID,
			TeacherID: teacherID,
			Date:      scope.Date,
			Status:    e.Status,
		}
	}
	return len(entries), nil
}

func (m *MemStore) tally(studentID int64, subjectID int64) model.Tally {
	var t model.Tally
	for _, r := range m.records {
		if r.StudentID != studentID || (subjectID != 0 && r.SubjectID != subjectID) {
			continue
		}
		t.Total++
		if r.Status == model.Present {
			t.Present++
		} else {
			t.Absent++
		}
	}
	return t
}

func (m *MemStore) SubjectTallies(ctx context.Context, studentID int64) ([]model.SubjectTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	out := make([]model.SubjectTally, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, model.SubjectTally{
			SubjectID: s.ID,
			Code:      s.Code,
			Name:      s.Name,
			Semester:  s.Semester,
			Credits:   s.Credits,
			Tally:     m.tally(studentID, s.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemStore) StudentTotals(ctx context.Context, studentID int64) (model.Tally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx); err != nil {
		return model.Tally{}, err
	}
	return m.tally(studentID, 0), nil
}

func (m *MemStore) sortedStudents() []department.Student {
	out := make([]department.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNumber < out[j].RollNumber })
	return out
}

func (m *MemStore) SessionRoster(ctx context.Context, scope model.Scope) ([]model.RosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	day := scope.Date.Format("2006-01-02")
	out := make([]model.RosterEntry, 0, len(m.students))
	for _, s := range m.sortedStudents() {
		e := model.RosterEntry{StudentID: s.ID, RollNumber: s.RollNumber, Name: s.Name, Email: s.Email}
		if r, ok := m.records[recordKey{s.ID, scope.SubjectID, day}]; ok {
			id, st := r.ID, r.Status
			e.AttendanceID, e.Status = &id, &st
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemStore) SubjectSummary(ctx context.Context, subjectID int64) ([]model.StudentTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	out := make([]model.StudentTally, 0, len(m.students))
	for _, s := range m.sortedStudents() {
		t := m.tally(s.ID, subjectID)
		out = append(out, model.StudentTally{
			StudentID:  s.ID,
			RollNumber: s.RollNumber,
			Name:       s.Name,
			Total:      t.Total,
			Attended:   t.Present,
			Missed:     t.Absent,
		})
	}
	return out, nil
}
