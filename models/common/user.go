package common

import constants "github.com/nsut-attendance/backend/internal/constants"

// Identity is the authenticated caller of a request. It is resolved by the
// session layer and passed explicitly into every ledger call.
type Identity struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

func (i Identity) IsTeacher() bool { return i.ID > 0 && i.Role == constants.RoleTeacher }

func (i Identity) IsStudent() bool { return i.ID > 0 && i.Role == constants.RoleStudent }
