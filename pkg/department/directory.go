package department

import (
	"context"

	"github.com/nsut-attendance/backend/models/department"
	"github.com/nsut-attendance/backend/pkg/db"
)

// Directory exposes the department lookups as methods so that the HTTP layer
// can depend on an interface. Lookup errors caused by a database outage wrap
// db.ErrUnavailable.
type Directory struct {
	db *db.DB
}

func NewDirectory(database *db.DB) *Directory {
	return &Directory{db: database}
}

func (d *Directory) StudentByID(ctx context.Context, id int64) (*department.Student, error) {
	s, err := GetStudentByID(ctx, d.db, id)
	return s, db.MarkUnavailable(err)
}

func (d *Directory) StudentByEmail(ctx context.Context, email string) (*department.Student, error) {
	s, err := GetStudentByEmail(ctx, d.db, email)
	return s, db.MarkUnavailable(err)
}

func (d *Directory) TeacherByID(ctx context.Context, id int64) (*department.Teacher, error) {
	t, err := GetTeacherByID(ctx, d.db, id)
	return t, db.MarkUnavailable(err)
}

func (d *Directory) TeacherByEmail(ctx context.Context, email string) (*department.Teacher, error) {
	t, err := GetTeacherByEmail(ctx, d.db, email)
	return t, db.MarkUnavailable(err)
}

func (d *Directory) Subject(ctx context.Context, id int64) (*department.Subject, error) {
	s, err := GetSubjectByID(ctx, d.db, id)
	return s, db.MarkUnavailable(err)
}

func (d *Directory) TeacherSubjects(ctx context.Context, teacherID int64) ([]department.Subject, error) {
	subjects, err := ListTeacherSubjects(ctx, d.db, teacherID)
	return subjects, db.MarkUnavailable(err)
}

func (d *Directory) IsTeacherAssigned(ctx context.Context, teacherID, subjectID int64) (bool, error) {
	ok, err := IsTeacherAssigned(ctx, d.db, teacherID, subjectID)
	return ok, db.MarkUnavailable(err)
}
