package department

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/nsut-attendance/backend/pkg/db"
)

// Seed is the provisioning file: the department's people, catalog and
// teaching assignments. Passwords are plaintext here and hashed on load.
type Seed struct {
	Students    []SeedStudent    `json:"students" validate:"dive"`
	Teachers    []SeedTeacher    `json:"teachers" validate:"dive"`
	Subjects    []SeedSubject    `json:"subjects" validate:"dive"`
	Assignments []SeedAssignment `json:"assignments" validate:"dive"`
}

type SeedStudent struct {
	RollNumber string `json:"roll_number" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
}

type SeedTeacher struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Department string `json:"department" validate:"required"`
}

type SeedSubject struct {
	Code     string `json:"subject_code" validate:"required"`
	Name     string `json:"subject_name" validate:"required"`
	Semester int    `json:"semester" validate:"required,gt=0"`
	Credits  int    `json:"credits" validate:"gte=0"`
}

type SeedAssignment struct {
	SubjectCode  string `json:"subject_code" validate:"required"`
	TeacherEmail string `json:"teacher_email" validate:"required,email"`
}

type ProvisionSummary struct {
	Students    int
	Teachers    int
	Subjects    int
	Assignments int
}

// Provision upserts everything in seed inside one transaction. People are
// keyed by roll number or email and subjects by code, so re-running a seed
// updates rather than duplicates. Assignments naming an unknown subject or
// teacher fail the whole load.
func Provision(ctx context.Context, database *db.DB, seed Seed, hash func(string) (string, error)) (ProvisionSummary, error) {
	var sum ProvisionSummary
	err := database.WithTx(ctx, func(tx pgx.Tx) error {
		for _, s := range seed.Students {
			h, err := hash(s.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", s.RollNumber, err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO students (roll_number, name, email, password_hash)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (roll_number) DO UPDATE
				SET name = EXCLUDED.name, email = EXCLUDED.email, password_hash = EXCLUDED.password_hash`,
				s.RollNumber, s.Name, normalizeEmail(s.Email), h,
			); err != nil {
				return fmt.Errorf("failed to provision student %s: %w", s.RollNumber, err)
			}
			sum.Students++
		}

		for _, t := range seed.Teachers {
			h, err := hash(t.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", t.Email, err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO teachers (name, email, password_hash, department)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (email) DO UPDATE
				SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, department = EXCLUDED.department`,
				t.Name, normalizeEmail(t.Email), h, t.Department,
			); err != nil {
				return fmt.Errorf("failed to provision teacher %s: %w", t.Email, err)
			}
			sum.Teachers++
		}

		for _, s := range seed.Subjects {
			if _, err := tx.Exec(ctx, `
				INSERT INTO subjects (subject_code, subject_name, semester, credits)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (subject_code) DO UPDATE
				SET subject_name = EXCLUDED.subject_name, semester = EXCLUDED.semester, credits = EXCLUDED.credits`,
				s.Code, s.Name, s.Semester, s.Credits,
			); err != nil {
				return fmt.Errorf("failed to provision subject %s: %w", s.Code, err)
			}
			sum.Subjects++
		}

		for _, a := range seed.Assignments {
			tag, err := tx.Exec(ctx, `
				INSERT INTO subject_teacher_mapping (subject_id, teacher_id)
				SELECT s.subject_id, t.teacher_id
				FROM subjects s, teachers t
				WHERE s.subject_code = $1 AND t.email = $2
				ON CONFLICT DO NOTHING`,
				a.SubjectCode, normalizeEmail(a.TeacherEmail),
			)
			if err != nil {
				return fmt.Errorf("failed to assign %s to %s: %w", a.SubjectCode, a.TeacherEmail, err)
			}
			if tag.RowsAffected() == 0 {
				ok, err := assignmentExists(ctx, tx, a)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("cannot assign %s to %s: unknown subject or teacher", a.SubjectCode, a.TeacherEmail)
				}
			}
			sum.Assignments++
		}
		return nil
	})
	if err != nil {
		return ProvisionSummary{}, err
	}
	return sum, nil
}

func assignmentExists(ctx context.Context, tx pgx.Tx, a SeedAssignment) (bool, error) {
	var ok bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM subject_teacher_mapping stm
			JOIN subjects s ON s.subject_id = stm.subject_id
			JOIN teachers t ON t.teacher_id = stm.teacher_id
			WHERE s.subject_code = $1 AND t.email = $2
		)`, a.SubjectCode, normalizeEmail(a.TeacherEmail)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check assignment %s/%s: %w", a.SubjectCode, a.TeacherEmail, err)
	}
	return ok, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
