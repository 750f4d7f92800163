package department

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/nsut-attendance/backend/models/department"
	"github.com/nsut-attendance/backend/pkg/db"
)

func GetStudentByID(ctx context.Context, db *db.DB, id int64) (*department.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	student := &department.Student{}
	err := db.Pool().QueryRow(ctx,
		"SELECT student_id, roll_number, name, email, password_hash FROM students WHERE student_id = $1", id,
	).Scan(&student.ID, &student.RollNumber, &student.Name, &student.Email, &student.PasswordHash)
	switch err {
	case pgx.ErrNoRows:
		return nil, nil
	case nil:
		return student, nil
	default:
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
}

// GetStudentByEmail matches emails case-insensitively.
func GetStudentByEmail(ctx context.Context, db *db.DB, email string) (*department.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	student := &department.Student{}
	err := db.Pool().QueryRow(ctx,
		"SELECT student_id, roll_number, name, email, password_hash FROM students WHERE lower(email) = $1",
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&student.ID, &student.RollNumber, &student.Name, &student.Email, &student.PasswordHash)
	switch err {
	case pgx.ErrNoRows:
		return nil, nil
	case nil:
		return student, nil
	default:
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
}

func GetTeacherByID(ctx context.Context, db *db.DB, id int64) (*department.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	teacher := &department.Teacher{}
	err := db.Pool().QueryRow(ctx,
		"SELECT teacher_id, name, email, department, password_hash FROM teachers WHERE teacher_id = $1", id,
	).Scan(&teacher.ID, &teacher.Name, &teacher.Email, &teacher.Department, &teacher.PasswordHash)
	switch err {
	case pgx.ErrNoRows:
		return nil, nil
	case nil:
		return teacher, nil
	default:
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
}

// GetTeacherByEmail matches emails case-insensitively.
func GetTeacherByEmail(ctx context.Context, db *db.DB, email string) (*department.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	teacher := &department.Teacher{}
	err := db.Pool().QueryRow(ctx,
		"SELECT teacher_id, name, email, department, password_hash FROM teachers WHERE lower(email) = $1",
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&teacher.ID, &teacher.Name, &teacher.Email, &teacher.Department, &teacher.PasswordHash)
	switch err {
	case pgx.ErrNoRows:
		return nil, nil
	case nil:
		return teacher, nil
	default:
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
}
