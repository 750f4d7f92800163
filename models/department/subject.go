package department

type Subject struct {
	ID       int64  `json:"subject_id" db:"subject_id"`
	Code     string `json:"subject_code" db:"subject_code"`
	Name     string `json:"subject_name" db:"subject_name"`
	Semester int    `json:"semester" db:"semester"`
	Credits  int    `json:"credits" db:"credits"`
}

