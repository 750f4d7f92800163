package department

type Student struct {
	ID           int64  `json:"student_id" db:"student_id"`
	RollNumber   string `json:"roll_number" db:"roll_number"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
}
