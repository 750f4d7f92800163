package attendance

import "math"

// Tally holds raw attendance counts.
type Tally struct {
	Total   int64 `json:"total_classes"`
	Present int64 `json:"classes_attended"`
	Absent  int64 `json:"classes_missed"`
}

// Percentage returns Present/Total as a percentage rounded to two decimal
// places, or exactly 0 when nothing has been recorded.
func (t Tally) Percentage() float64 {
	return Percentage(t.Present, t.Total)
}

func Percentage(attended, total int64) float64 {
	if total <= 0 {
		return 0
	}
	// Scale before dividing so the only rounding is the final one.
	return math.Round(float64(attended)*10000/float64(total)) / 100
}

// SubjectAttendance is one subject line of a student report.
type SubjectAttendance struct {
	SubjectID  int64   `json:"subject_id"`
	Code       string  `json:"subject_code"`
	Name       string  `json:"subject_name"`
	Semester   int     `json:"semester"`
	Credits    int     `json:"credits"`
	Total      int64   `json:"total_classes"`
	Attended   int64   `json:"classes_attended"`
	Missed     int64   `json:"classes_missed"`
	Percentage float64 `json:"attendance_percentage"`
}

type OverallAttendance struct {
	Total      int64   `json:"total_classes"`
	Present    int64   `json:"total_present"`
	Percentage float64 `json:"overall_percentage"`
}

// StudentReport is the full attendance picture of one student. Subjects
// include every catalog subject, ordered by code.
type StudentReport struct {
	StudentID int64               `json:"student_id"`
	Overall   OverallAttendance   `json:"overall"`
	Subjects  []SubjectAttendance `json:"subjects"`
}

// RosterEntry is one enrolled student in a session roster. Status is nil
// when the student has not been marked for that session.
type RosterEntry struct {
	StudentID    int64   `json:"student_id"`
	RollNumber   string  `json:"roll_number"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	AttendanceID *int64  `json:"attendance_id"`
	Status       *Status `json:"status"`
}

func (r RosterEntry) Marked() bool { return r.Status != nil }

// StudentTally is one student's counts within a single subject.
type StudentTally struct {
	StudentID  int64   `json:"student_id"`
	RollNumber string  `json:"roll_number"`
	Name       string  `json:"name"`
	Total      int64   `json:"total_classes"`
	Attended   int64   `json:"classes_attended"`
	Missed     int64   `json:"classes_missed"`
	Percentage float64 `json:"attendance_percentage"`
}

// SubjectTally is the raw per-subject line the store produces for a student.
type SubjectTally struct {
	SubjectID int64
	Code      string
	Name      string
	Semester  int
	Credits   int
	Tally
}
