package department

type Teacher struct {
	ID           int64  `json:"teacher_id" db:"teacher_id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Department   string `json:"department" db:"department"`
	PasswordHash string `json:"-" db:"password_hash"`
}
