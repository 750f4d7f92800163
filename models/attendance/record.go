package attendance

import (
	"fmt"
	"time"
)

// Status is the recorded state of one student in one session. A session with
// no record for a student is "unmarked", which is not a Status value.
type Status string

const (
	Present Status = "Present"
	Absent  Status = "Absent"
)

func (s Status) Valid() bool {
	return s == Present || s == Absent
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", s)
	}
	return st, nil
}

// Record is one row of the attendance table.
type Record struct {
	ID        int64     `json:"attendance_id" db:"attendance_id"`
	StudentID int64     `json:"student_id" db:"student_id"` // Foreign key
	SubjectID int64     `json:"subject_id" db:"subject_id"` // Foreign key
	TeacherID int64     `json:"teacher_id" db:"teacher_id"` // Foreign key, who recorded it
	Date      time.Time `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
}

// Entry is one (student, status) pair of a submitted roster.
type Entry struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Status    Status `json:"status" validate:"required,oneof=Present Absent"`
}

// Scope identifies one class session: a subject on a calendar day.
type Scope struct {
	SubjectID int64
	Date      time.Time
}

func (s Scope) String() string {
	return fmt.Sprintf("%d@%s", s.SubjectID, s.Date.Format("2006-01-02"))
}
