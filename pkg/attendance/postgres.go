package attendance

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	model "github.com/nsut-attendance/backend/models/attendance"
	"github.com/nsut-attendance/backend/pkg/db"
)

var attendanceColumns = []string{"student_id", "subject_id", "teacher_id", "date", "status"}

// PGStore is the PostgreSQL record store.
type PGStore struct {
	db *db.DB
}

func NewPGStore(database *db.DB) *PGStore {
	return &PGStore{db: database}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) ReplaceScope(ctx context.Context, scope model.Scope, teacherID int64, entries []model.Entry) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	var inserted int64
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		// Writers of the same scope queue here until the holder commits or
		// rolls back. Other scopes hash to other keys.
		if _, err := tx.Exec(ctx,
			"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))",
			"attendance:"+scope.String(),
		); err != nil {
			return fmt.Errorf("failed to lock scope: %w", err)
		}

		if _, err := tx.Exec(ctx,
			"DELETE FROM attendance WHERE subject_id = $1 AND date = $2",
			scope.SubjectID, scope.Date,
		); err != nil {
			return fmt.Errorf("failed to clear scope: %w", err)
		}

		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []any{e.StudentID, scope.SubjectID, teacherID, scope.Date, string(e.Status)})
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{"attendance"}, attendanceColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to insert records: %w", err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}

	return int(inserted), nil
}

const subjectTalliesSQL = `
SELECT s.subject_id,
       s.subject_code,
       s.subject_name,
       s.semester,
       s.credits,
       COUNT(a.attendance_id),
       COUNT(a.attendance_id) FILTER (WHERE a.status = 'Present'),
       COUNT(a.attendance_id) FILTER (WHERE a.status = 'Absent')
FROM subjects s
LEFT JOIN attendance a ON a.subject_id = s.subject_id AND a.student_id = $1
GROUP BY s.subject_id, s.subject_code, s.subject_name, s.semester, s.credits
ORDER BY s.subject_code COLLATE "C"`

func (s *PGStore) SubjectTallies(ctx context.Context, studentID int64) ([]model.SubjectTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	rows, err := s.db.Pool().Query(ctx, subjectTalliesSQL, studentID)
	if err != nil {
		return nil, classify(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SubjectTally, error) {
		var t model.SubjectTally
		err := row.Scan(&t.SubjectID, &t.Code, &t.Name, &t.Semester, &t.Credits,
			&t.Total, &t.Present, &t.Absent)
		return t, err
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *PGStore) StudentTotals(ctx context.Context, studentID int64) (model.Tally, error) {
	if err := ctx.Err(); err != nil {
		return model.Tally{}, fmt.Errorf("context cancelled: %w", err)
	}

	var t model.Tally
	err := s.db.Pool().QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'Present'),
		       COUNT(*) FILTER (WHERE status = 'Absent')
		FROM attendance
		WHERE student_id = $1`, studentID).Scan(&t.Total, &t.Present, &t.Absent)
	if err != nil {
		return model.Tally{}, classify(err)
	}
	return t, nil
}

const sessionRosterSQL = `
SELECT st.student_id,
       st.roll_number,
       st.name,
       st.email,
       a.attendance_id,
       a.status
FROM students st
LEFT JOIN attendance a ON a.student_id = st.student_id
                      AND a.subject_id = $1
                      AND a.date = $2
ORDER BY st.roll_number COLLATE "C"`

func (s *PGStore) SessionRoster(ctx context.Context, scope model.Scope) ([]model.RosterEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	rows, err := s.db.Pool().Query(ctx, sessionRosterSQL, scope.SubjectID, scope.Date)
	if err != nil {
		return nil, classify(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RosterEntry, error) {
		var (
			e      model.RosterEntry
			status *string
		)
		if err := row.Scan(&e.StudentID, &e.RollNumber, &e.Name, &e.Email, &e.AttendanceID, &status); err != nil {
			return e, err
		}
		if status != nil {
			st, err := model.ParseStatus(*status)
			if err != nil {
				return e, err
			}
			e.Status = &st
		}
		return e, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

const subjectSummarySQL = `
SELECT st.student_id,
       st.roll_number,
       st.name,
       COUNT(a.attendance_id),
       COUNT(a.attendance_id) FILTER (WHERE a.status = 'Present'),
       COUNT(a.attendance_id) FILTER (WHERE a.status = 'Absent')
FROM students st
LEFT JOIN attendance a ON a.student_id = st.student_id AND a.subject_id = $1
GROUP BY st.student_id, st.roll_number, st.name
ORDER BY st.roll_number COLLATE "C"`

func (s *PGStore) SubjectSummary(ctx context.Context, subjectID int64) ([]model.StudentTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	rows, err := s.db.Pool().Query(ctx, subjectSummarySQL, subjectID)
	if err != nil {
		return nil, classify(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.StudentTally, error) {
		var t model.StudentTally
		err := row.Scan(&t.StudentID, &t.RollNumber, &t.Name, &t.Total, &t.Attended, &t.Missed)
		return t, err
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}
