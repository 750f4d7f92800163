package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsut-attendance/backend/internal/auth"
	constants "github.com/nsut-attendance/backend/internal/constants"
	model "github.com/nsut-attendance/backend/models/attendance"
	"github.com/nsut-attendance/backend/models/common"
	"github.com/nsut-attendance/backend/models/department"
	"github.com/nsut-attendance/backend/pkg/attendance"
	"github.com/nsut-attendance/backend/pkg/attendance/attendancetest"
	"github.com/nsut-attendance/backend/pkg/db"
)

type fakeDirectory struct {
	students    map[int64]*department.Student
	teachers    map[int64]*department.Teacher
	subjects    map[int64]*department.Subject
	assignments map[int64][]int64 // teacher -> subjects
	err         error
}

func (f *fakeDirectory) StudentByEmail(_ context.Context, email string) (*department.Student, error) {
	for _, s := range f.students {
		if s.Email == email {
			return s, f.err
		}
	}
	return nil, f.err
}

func (f *fakeDirectory) TeacherByEmail(_ context.Context, email string) (*department.Teacher, error) {
	for _, t := range f.teachers {
		if t.Email == email {
			return t, f.err
		}
	}
	return nil, f.err
}

func (f *fakeDirectory) StudentByID(_ context.Context, id int64) (*department.Student, error) {
	return f.students[id], f.err
}

func (f *fakeDirectory) TeacherByID(_ context.Context, id int64) (*department.Teacher, error) {
	return f.teachers[id], f.err
}

func (f *fakeDirectory) Subject(_ context.Context, id int64) (*department.Subject, error) {
	return f.subjects[id], f.err
}

func (f *fakeDirectory) TeacherSubjects(_ context.Context, teacherID int64) ([]department.Subject, error) {
	out := []department.Subject{}
	for _, id := range f.assignments[teacherID] {
		out = append(out, *f.subjects[id])
	}
	return out, f.err
}

func (f *fakeDirectory) IsTeacherAssigned(_ context.Context, teacherID, subjectID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.assignments[teacherID] {
		if id == subjectID {
			return true, nil
		}
	}
	return false, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fixture struct {
	handler http.Handler
	store   *attendancetest.MemStore
	dir     *fakeDirectory
	tokens  *auth.Tokens
	pinger  *fakePinger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	students := []department.Student{
		{ID: 1, RollNumber: "2021UCS002", Name: "Alice", Email: "alice@dept.test", PasswordHash: hash},
		{ID: 2, RollNumber: "2021UCS001", Name: "Bob", Email: "bob@dept.test", PasswordHash: hash},
	}
	subjects := []department.Subject{
		{ID: 100, Code: "CS302", Name: "Databases", Semester: 5, Credits: 4},
		{ID: 101, Code: "CS301", Name: "Networks", Semester: 5, Credits: 3},
	}

	store := attendancetest.NewMemStore()
	dir := &fakeDirectory{
		students: map[int64]*department.Student{},
		teachers: map[int64]*department.Teacher{
			10: {ID: 10, Name: "Dr. Rao", Email: "rao@dept.test", Department: "CSE", PasswordHash: hash},
			11: {ID: 11, Name: "Dr. Sen", Email: "sen@dept.test", Department: "CSE", PasswordHash: hash},
		},
		subjects:    map[int64]*department.Subject{},
		assignments: map[int64][]int64{10: {100}, 11: {101}},
	}
	for i := range students {
		store.AddStudent(students[i])
		dir.students[students[i].ID] = &students[i]
	}
	for i := range subjects {
		store.AddSubject(subjects[i])
		dir.subjects[subjects[i].ID] = &subjects[i]
	}
	store.AddTeacher(10)
	store.AddTeacher(11)

	tokens := auth.NewTokens("test-secret", time.Hour)
	pinger := &fakePinger{}
	srv := NewServer(attendance.NewLedger(store), dir, tokens, pinger, Options{
		LoginRateLimit: 100,
		RequestTimeout: 5 * time.Second,
	})

	return &fixture{handler: srv.Router(), store: store, dir: dir, tokens: tokens, pinger: pinger}
}

func (f *fixture) token(t *testing.T, id int64, role string) string {
	t.Helper()
	signed, _, err := f.tokens.Issue(common.Identity{ID: id, Role: role})
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestLoginIssuesUsableToken(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "Alice@Dept.test", "password": "password123", "userType": "student",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "student_dashboard", body["redirect"])

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	code, body = f.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	profile := body["profile"].(map[string]any)
	assert.Equal(t, "2021UCS002", profile["roll_number"])
	assert.NotContains(t, profile, "password_hash")
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"wrong password", map[string]string{"email": "alice@dept.test", "password": "nope", "userType": "student"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "ghost@dept.test", "password": "password123", "userType": "student"}, http.StatusUnauthorized},
		{"wrong table", map[string]string{"email": "alice@dept.test", "password": "password123", "userType": "teacher"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"email": "alice@dept.test"}, http.StatusBadRequest},
		{"bad user type", map[string]string{"email": "alice@dept.test", "password": "x", "userType": "admin"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, http.MethodPost, "/api/login", "", tt.body)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestLoginUserTypeKeys(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "rao@dept.test", "password": "password123", "userType": "teacher",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "teacher_dashboard", body["redirect"])

	code, body = f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "alice@dept.test", "password": "password123", "user_type": "student",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "student_dashboard", body["redirect"])

	code, body = f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "alice@dept.test", "password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["errors"], "userType")
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(attendance.NewLedger(f.store), f.dir, f.tokens, f.pinger, Options{LoginRateLimit: 2})
	f.handler = srv.Router()

	body := map[string]string{"email": "alice@dept.test", "password": "nope", "userType": "student"}
	for i := 0; i < 2; i++ {
		code, _ := f.do(t, http.MethodPost, "/api/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	code, resp := f.do(t, http.MethodPost, "/api/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, false, resp["success"])
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodGet, "/api/student/attendance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodGet, "/api/student/attendance", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodGet, "/api/student/attendance", f.token(t, 10, constants.RoleTeacher), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodGet, "/api/teacher/subjects", f.token(t, 1, constants.RoleStudent), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestTeacherSubjects(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/teacher/subjects", f.token(t, 10, constants.RoleTeacher), nil)
	require.Equal(t, http.StatusOK, code)
	subjects := body["subjects"].([]any)
	require.Len(t, subjects, 1)
	assert.Equal(t, "CS302", subjects[0].(map[string]any)["subject_code"])
}

func TestSubmitAndReadBack(t *testing.T) {
	f := newFixture(t)
	teacher := f.token(t, 10, constants.RoleTeacher)

	code, body := f.do(t, http.MethodPost, "/api/teacher/attendance", teacher, map[string]any{
		"subject_id": 100,
		"date":       "2024-03-01",
		"attendance": []map[string]any{
			{"student_id": 1, "status": "Present"},
			{"student_id": 2, "status": "Absent"},
		},
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 2, body["inserted_count"])

	code, body = f.do(t, http.MethodGet, "/api/teacher/roster?subject_id=100&date=2024-03-01", teacher, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "2024-03-01", body["date"])
	students := body["students"].([]any)
	require.Len(t, students, 2)
	// Ordered by roll number: Bob (UCS001) before Alice (UCS002).
	assert.Equal(t, "Bob", students[0].(map[string]any)["name"])
	assert.Equal(t, "Absent", students[0].(map[string]any)["status"])
	assert.Equal(t, "Present", students[1].(map[string]any)["status"])

	code, body = f.do(t, http.MethodGet, "/api/teacher/roster?subject_id=100&date=2024-03-02", teacher, nil)
	require.Equal(t, http.StatusOK, code)
	for _, s := range body["students"].([]any) {
		assert.Nil(t, s.(map[string]any)["status"])
	}

	code, body = f.do(t, http.MethodGet, "/api/student/attendance", f.token(t, 1, constants.RoleStudent), nil)
	require.Equal(t, http.StatusOK, code)
	overall := body["overall"].(map[string]any)
	assert.EqualValues(t, 1, overall["total_classes"])
	assert.EqualValues(t, 100, overall["overall_percentage"])
	subjects := body["subjects"].([]any)
	require.Len(t, subjects, 2)
	assert.Equal(t, "CS301", subjects[0].(map[string]any)["subject_code"])
	assert.EqualValues(t, 0, subjects[0].(map[string]any)["attendance_percentage"])

	code, body = f.do(t, http.MethodGet, "/api/teacher/subjects/100/summary", teacher, nil)
	require.Equal(t, http.StatusOK, code)
	summary := body["students"].([]any)
	require.Len(t, summary, 2)
	assert.EqualValues(t, 0, summary[0].(map[string]any)["attendance_percentage"])
	assert.EqualValues(t, 100, summary[1].(map[string]any)["attendance_percentage"])
}

func TestSubjectSummaryCSV(t *testing.T) {
	f := newFixture(t)
	teacher := f.token(t, 10, constants.RoleTeacher)

	code, body := f.do(t, http.MethodPost, "/api/teacher/attendance", teacher, map[string]any{
		"subject_id": 100, "date": "2024-03-01",
		"attendance": []map[string]any{{"student_id": 1, "status": "Present"}, {"student_id": 2, "status": "Absent"}},
	})
	require.Equal(t, http.StatusOK, code, body)

	req := httptest.NewRequest(http.MethodGet, "/api/teacher/subjects/100/summary.csv", nil)
	req.Header.Set("Authorization", "Bearer "+teacher)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "CS302-attendance.csv")
	assert.Equal(t, "roll_number,name,total_classes,classes_attended,classes_missed,attendance_percentage\n"+
		"2021UCS001,Bob,1,0,1,0.00\n"+
		"2021UCS002,Alice,1,1,0,100.00\n", rec.Body.String())
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture(t)
	teacher := f.token(t, 10, constants.RoleTeacher)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"unassigned subject", map[string]any{
			"subject_id": 101, "date": "2024-03-01",
			"attendance": []map[string]any{{"student_id": 1, "status": "Present"}},
		}, http.StatusForbidden},
		{"empty roster", map[string]any{
			"subject_id": 100, "date": "2024-03-01", "attendance": []map[string]any{},
		}, http.StatusBadRequest},
		{"bad status", map[string]any{
			"subject_id": 100, "date": "2024-03-01",
			"attendance": []map[string]any{{"student_id": 1, "status": "Late"}},
		}, http.StatusBadRequest},
		{"bad date", map[string]any{
			"subject_id": 100, "date": "01/03/2024",
			"attendance": []map[string]any{{"student_id": 1, "status": "Present"}},
		}, http.StatusBadRequest},
		{"missing subject", map[string]any{
			"date":       "2024-03-01",
			"attendance": []map[string]any{{"student_id": 1, "status": "Present"}},
		}, http.StatusBadRequest},
		{"unknown student", map[string]any{
			"subject_id": 100, "date": "2024-03-01",
			"attendance": []map[string]any{{"student_id": 1, "status": "Present"}, {"student_id": 999, "status": "Absent"}},
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, http.MethodPost, "/api/teacher/attendance", teacher, tt.body)
			assert.Equal(t, tt.code, code, body)
			assert.Equal(t, false, body["success"])
		})
	}

	code, body := f.do(t, http.MethodGet, "/api/teacher/roster?subject_id=100&date=2024-03-01", teacher, nil)
	require.Equal(t, http.StatusOK, code)
	for _, s := range body["students"].([]any) {
		assert.Nil(t, s.(map[string]any)["status"])
	}
}

func TestValidationErrorNamesFields(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/teacher/attendance", f.token(t, 10, constants.RoleTeacher), map[string]any{
		"subject_id": 100, "date": "2024-03-01",
		"attendance": []map[string]any{{"student_id": 1, "status": "Present"}, {"student_id": 1, "status": "Absent"}},
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["errors"], "attendance[1].student_id")
}

func TestRosterRequiresAssignment(t *testing.T) {
	f := newFixture(t)
	teacher := f.token(t, 10, constants.RoleTeacher)

	code, _ := f.do(t, http.MethodGet, "/api/teacher/roster?subject_id=101", teacher, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodGet, "/api/teacher/roster?subject_id=abc", teacher, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/teacher/subjects/101/summary", teacher, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.Err = attendance.ErrStoreUnavailable

	code, body := f.do(t, http.MethodGet, "/api/student/attendance", f.token(t, 1, constants.RoleStudent), nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["success"])

	code, body = f.do(t, http.MethodPost, "/api/teacher/attendance", f.token(t, 10, constants.RoleTeacher), map[string]any{
		"subject_id": 100, "date": "2024-03-01",
		"attendance": []map[string]any{{"student_id": 1, "status": "Present"}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "failed to save attendance", body["message"])

}

func TestDirectoryUnavailable(t *testing.T) {
	f := newFixture(t)
	teacher := f.token(t, 10, constants.RoleTeacher)
	f.dir.err = db.MarkUnavailable(fmt.Errorf("failed to check teaching assignment: %w",
		errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))

	code, body := f.do(t, http.MethodPost, "/api/teacher/attendance", teacher, map[string]any{
		"subject_id": 100, "date": "2024-03-01",
		"attendance": []map[string]any{{"student_id": 1, "status": "Present"}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["success"])

	code, _ = f.do(t, http.MethodGet, "/api/teacher/subjects", teacher, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = f.do(t, http.MethodGet, "/api/teacher/roster?subject_id=100", teacher, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "rao@dept.test", "password": "password123", "userType": "teacher",
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)

	// Unclassified directory errors stay internal.
	f.dir.err = errors.New("unexpected scan failure")
	code, _ = f.do(t, http.MethodGet, "/api/teacher/subjects", teacher, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestReplaceTimeout(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(attendance.NewLedger(f.store), f.dir, f.tokens, f.pinger, Options{RequestTimeout: time.Nanosecond})
	f.handler = srv.Router()

	code, body := f.do(t, http.MethodPost, "/api/teacher/attendance", f.token(t, 10, constants.RoleTeacher), map[string]any{
		"subject_id": 100, "date": "2024-03-01",
		"attendance": []map[string]any{{"student_id": 1, "status": "Present"}},
	})
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "request timed out", body["message"])
}

func TestWriteFailureStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"timeout during replace", fmt.Errorf("%w: %w", attendance.ErrWriteFailed, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"outage during replace", fmt.Errorf("%w: %w", attendance.ErrWriteFailed, attendance.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"directory outage", db.MarkUnavailable(errors.New("connection refused")), http.StatusServiceUnavailable},
		{"rejected replace", fmt.Errorf("%w: %w", attendance.ErrWriteFailed, attendance.ErrUnknownReference), http.StatusUnprocessableEntity},
		{"invalid", attendance.ErrInvalidInput, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeFailure(rec, httptest.NewRequest(http.MethodPost, "/api/teacher/attendance", nil), tt.err)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	f.pinger.err = errors.New("connection refused")
	code, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["status"])

	code, _ = f.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatusJSON(t *testing.T) {
	// Unmarked roster rows must serialize status as null, not "Absent".
	raw, err := sonic.ConfigStd.Marshal(model.RosterEntry{StudentID: 1})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":null`)
}
