package department

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nsut-attendance/backend/models/department"
	"github.com/nsut-attendance/backend/pkg/db"
)

func GetSubjectByID(ctx context.Context, db *db.DB, id int64) (*department.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	subject := &department.Subject{}
	err := db.Pool().QueryRow(ctx,
		"SELECT subject_id, subject_code, subject_name, semester, credits FROM subjects WHERE subject_id = $1", id,
	).Scan(&subject.ID, &subject.Code, &subject.Name, &subject.Semester, &subject.Credits)
	switch err {
	case pgx.ErrNoRows:
		return nil, nil
	case nil:
		return subject, nil
	default:
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
}

// ListTeacherSubjects returns the subjects assigned to a teacher, ordered by code.
func ListTeacherSubjects(ctx context.Context, db *db.DB, teacherID int64) ([]department.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	rows, err := db.Pool().Query(ctx, `
		SELECT s.subject_id, s.subject_code, s.subject_name, s.semester, s.credits
		FROM subjects s
		INNER JOIN subject_teacher_mapping stm ON s.subject_id = stm.subject_id
		WHERE stm.teacher_id = $1
		ORDER BY s.subject_code COLLATE "C"`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher subjects: %w", err)
	}

	subjects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (department.Subject, error) {
		var s department.Subject
		err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Semester, &s.Credits)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan teacher subjects: %w", err)
	}
	return subjects, nil
}

func IsTeacherAssigned(ctx context.Context, db *db.DB, teacherID, subjectID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	var assigned bool
	err := db.Pool().QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM subject_teacher_mapping WHERE teacher_id = $1 AND subject_id = $2)",
		teacherID, subjectID,
	).Scan(&assigned)
	if err != nil {
		return false, fmt.Errorf("failed to check teaching assignment: %w", err)
	}
	return assigned, nil
}
