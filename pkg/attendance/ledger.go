// Package attendance is the attendance ledger: the replace-write pipeline that
// stores one class session's roster at a time, and the read-only engine that
// turns stored records into per-subject and overall percentages.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nsut-attendance/backend/internal/logger"
	"github.com/nsut-attendance/backend/internal/metrics"
	model "github.com/nsut-attendance/backend/models/attendance"
	"github.com/nsut-attendance/backend/models/common"
)

// Store is the durable record store behind the ledger.
type Store interface {
	// ReplaceScope deletes every record of scope and inserts entries, all in
	// one transaction, stamping each row with teacherID. It returns the
	// number of rows inserted.
	ReplaceScope(ctx context.Context, scope model.Scope, teacherID int64, entries []model.Entry) (int, error)

	// SubjectTallies returns one line per catalog subject for the student,
	// including subjects without records, ordered by subject code.
	SubjectTallies(ctx context.Context, studentID int64) ([]model.SubjectTally, error)

	// StudentTotals counts every record of the student across subjects.
	StudentTotals(ctx context.Context, studentID int64) (model.Tally, error)

	// SessionRoster returns every enrolled student ordered by roll number,
	// with the scope's record when one exists.
	SessionRoster(ctx context.Context, scope model.Scope) ([]model.RosterEntry, error)

	// SubjectSummary returns every enrolled student's counts within one
	// subject, ordered by roll number.
	SubjectSummary(ctx context.Context, subjectID int64) ([]model.StudentTally, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// ReplaceRequest is a full roster for one class session.
type ReplaceRequest struct {
	SubjectID int64         `json:"subject_id" validate:"required,gt=0"`
	Date      string        `json:"date" validate:"required,isodate"`
	Entries   []model.Entry `json:"attendance" validate:"required,min=1,dive"`
}

// ReplaceAttendance supersedes the stored snapshot of (subject, date) with
// req.Entries. Either the whole roster is stored or nothing changes.
func (l *Ledger) ReplaceAttendance(ctx context.Context, actor common.Identity, req ReplaceRequest) (int, error) {
	start := time.Now()

	n, err := l.replace(ctx, actor, req)
	metrics.ReplaceTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return 0, err
	}

	metrics.RecordsWritten.Add(float64(n))
	metrics.ReplaceDuration.Observe(time.Since(start).Seconds())
	return n, nil
}

func (l *Ledger) replace(ctx context.Context, actor common.Identity, req ReplaceRequest) (int, error) {
	if !actor.IsTeacher() {
		return 0, fmt.Errorf("%w: only teachers can record attendance", ErrForbidden)
	}

	if err := validate.Struct(req); err != nil {
		return 0, ValidationFromValidator(err)
	}

	seen := make(map[int64]struct{}, len(req.Entries))
	for i, e := range req.Entries {
		if _, dup := seen[e.StudentID]; dup {
			return 0, invalid("attendance["+strconv.Itoa(i)+"].student_id", "appears more than once")
		}
		seen[e.StudentID] = struct{}{}
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return 0, invalid("date", "must be a YYYY-MM-DD date")
	}
	scope := model.Scope{SubjectID: req.SubjectID, Date: date}

	n, err := l.store.ReplaceScope(ctx, scope, actor.ID, req.Entries)
	if err != nil {
		logger.FromContext(ctx).Warn("attendance replace failed",
			"scope", scope.String(), "teacher_id", actor.ID, "error", err)
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	logger.FromContext(ctx).Info("attendance replaced",
		"scope", scope.String(), "teacher_id", actor.ID, "records", n)
	return n, nil
}

// StudentReport returns the student's per-subject and overall attendance.
// Students may only read their own report.
func (l *Ledger) StudentReport(ctx context.Context, actor common.Identity, studentID int64) (*model.StudentReport, error) {
	if !actor.IsStudent() || actor.ID != studentID {
		return nil, fmt.Errorf("%w: students can only view their own attendance", ErrForbidden)
	}

	tallies, err := l.store.SubjectTallies(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subject attendance: %w", err)
	}
	totals, err := l.store.StudentTotals(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get overall attendance: %w", err)
	}

	report := &model.StudentReport{
		StudentID: studentID,
		Overall: model.OverallAttendance{
			Total:      totals.Total,
			Present:    totals.Present,
			Percentage: totals.Percentage(),
		},
		Subjects: make([]model.SubjectAttendance, 0, len(tallies)),
	}
	for _, t := range tallies {
		report.Subjects = append(report.Subjects, model.SubjectAttendance{
			SubjectID:  t.SubjectID,
			Code:       t.Code,
			Name:       t.Name,
			Semester:   t.Semester,
			Credits:    t.Credits,
			Total:      t.Total,
			Attended:   t.Present,
			Missed:     t.Absent,
			Percentage: t.Percentage(),
		})
	}

	metrics.ReportsServed.WithLabelValues("student").Inc()
	return report, nil
}

// SessionRoster lists every enrolled student with their status for the
// session. An empty date means today.
func (l *Ledger) SessionRoster(ctx context.Context, actor common.Identity, subjectID int64, date string) ([]model.RosterEntry, time.Time, error) {
	if !actor.IsTeacher() {
		return nil, time.Time{}, fmt.Errorf("%w: only teachers can open a session roster", ErrForbidden)
	}
	if subjectID <= 0 {
		return nil, time.Time{}, invalid("subject_id", "is required")
	}

	var day time.Time
	if date == "" {
		now := l.now()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		var err error
		if day, err = ParseDate(date); err != nil {
			return nil, time.Time{}, invalid("date", "must be a YYYY-MM-DD date")
		}
	}

	roster, err := l.store.SessionRoster(ctx, model.Scope{SubjectID: subjectID, Date: day})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to get session roster: %w", err)
	}

	metrics.ReportsServed.WithLabelValues("roster").Inc()
	return roster, day, nil
}

// SubjectSummary returns per-student counts and percentages for one subject.
func (l *Ledger) SubjectSummary(ctx context.Context, actor common.Identity, subjectID int64) ([]model.StudentTally, error) {
	if !actor.IsTeacher() {
		return nil, fmt.Errorf("%w: only teachers can view subject summaries", ErrForbidden)
	}
	if subjectID <= 0 {
		return nil, invalid("subject_id", "is required")
	}

	rows, err := l.store.SubjectSummary(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subject summary: %w", err)
	}
	for i := range rows {
		rows[i].Percentage = model.Percentage(rows[i].Attended, rows[i].Total)
	}

	metrics.ReportsServed.WithLabelValues("subject").Inc()
	return rows, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrForbidden):
		return metrics.ResultForbidden
	case errors.Is(err, ErrInvalidInput):
		return metrics.ResultInvalid
	case errors.Is(err, ErrUnknownReference):
		return metrics.ResultUnknownRef
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.ResultUnavailable
	default:
		return metrics.ResultError
	}
}
