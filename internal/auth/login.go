package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	constants "github.com/nsut-attendance/backend/internal/constants"
	"github.com/nsut-attendance/backend/models/common"
	"github.com/nsut-attendance/backend/models/department"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Compared against when the account does not exist so that unknown emails
// take as long as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Credentials looks up accounts by login email. Lookups return nil, nil when
// no account matches.
type Credentials interface {
	StudentByEmail(ctx context.Context, email string) (*department.Student, error)
	TeacherByEmail(ctx context.Context, email string) (*department.Teacher, error)
}

type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Identity  common.Identity `json:"user"`
	// RollNumber is set for students.
	RollNumber string `json:"roll_number,omitempty"`
	// Department is set for teachers.
	Department string `json:"department,omitempty"`
	Email      string `json:"email"`
}

type Authenticator struct {
	creds  Credentials
	tokens *Tokens
}

func NewAuthenticator(creds Credentials, tokens *Tokens) *Authenticator {
	return &Authenticator{creds: creds, tokens: tokens}
}

// Login checks email and password against the account table selected by
// userType and opens a session.
func (a *Authenticator) Login(ctx context.Context, email, password, userType string) (*Session, error) {
	var (
		hash    string
		session Session
		found   bool
	)

	switch userType {
	case constants.RoleStudent:
		s, err := a.creds.StudentByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if s != nil {
			found, hash = true, s.PasswordHash
			session.Identity = common.Identity{ID: s.ID, Role: constants.RoleStudent, Name: s.Name}
			session.RollNumber = s.RollNumber
			session.Email = s.Email
		}
	case constants.RoleTeacher:
		t, err := a.creds.TeacherByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if t != nil {
			found, hash = true, t.PasswordHash
			session.Identity = common.Identity{ID: t.ID, Role: constants.RoleTeacher, Name: t.Name}
			session.Department = t.Department
			session.Email = t.Email
		}
	default:
		return nil, fmt.Errorf("%w: unknown user type %q", ErrInvalidCredentials, userType)
	}

	if !found {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := CheckPassword(hash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := a.tokens.Issue(session.Identity)
	if err != nil {
		return nil, err
	}
	session.Token, session.ExpiresAt = token, exp
	return &session, nil
}
