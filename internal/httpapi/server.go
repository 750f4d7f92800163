// Package httpapi exposes the attendance ledger and the department directory
// over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/nsut-attendance/backend/internal/auth"
	constants "github.com/nsut-attendance/backend/internal/constants"
	"github.com/nsut-attendance/backend/pkg/attendance"
	model "github.com/nsut-attendance/backend/models/attendance"
	"github.com/nsut-attendance/backend/models/common"
	"github.com/nsut-attendance/backend/models/department"
)

// Ledger is the attendance ledger as seen by the handlers.
type Ledger interface {
	ReplaceAttendance(ctx context.Context, actor common.Identity, req attendance.ReplaceRequest) (int, error)
	StudentReport(ctx context.Context, actor common.Identity, studentID int64) (*model.StudentReport, error)
	SessionRoster(ctx context.Context, actor common.Identity, subjectID int64, date string) ([]model.RosterEntry, time.Time, error)
	SubjectSummary(ctx context.Context, actor common.Identity, subjectID int64) ([]model.StudentTally, error)
}

// Directory answers who exists and who teaches what.
type Directory interface {
	auth.Credentials
	StudentByID(ctx context.Context, id int64) (*department.Student, error)
	TeacherByID(ctx context.Context, id int64) (*department.Teacher, error)
	Subject(ctx context.Context, id int64) (*department.Subject, error)
	TeacherSubjects(ctx context.Context, teacherID int64) ([]department.Subject, error)
	IsTeacherAssigned(ctx context.Context, teacherID, subjectID int64) (bool, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	CORSOrigins    []string
	LoginRateLimit int
	RequestTimeout time.Duration
}

type Server struct {
	ledger Ledger
	dir    Directory
	tokens *auth.Tokens
	login  *auth.Authenticator
	db     Pinger
	opts   Options
}

func NewServer(ledger Ledger, dir Directory, tokens *auth.Tokens, db Pinger, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.LoginRateLimit <= 0 {
		opts.LoginRateLimit = 10
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		ledger: ledger,
		dir:    dir,
		tokens: tokens,
		login:  auth.NewAuthenticator(dir, tokens),
		db:     db,
		opts:   opts,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         600,
	}).Handler)
	r.Use(s.requestContext)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(httprate.Limit(s.opts.LoginRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			}),
		)).Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/me", s.handleMe)

			r.Route("/teacher", func(r chi.Router) {
				r.Use(requireRole(constants.RoleTeacher))
				r.Get("/subjects", s.handleTeacherSubjects)
				r.Get("/subjects/{subjectID}/summary", s.handleSubjectSummary)
				r.Get("/subjects/{subjectID}/summary.csv", s.handleSubjectSummaryCSV)
				r.Get("/roster", s.handleRoster)
				r.Post("/attendance", s.handleReplaceAttendance)
			})

			r.Route("/student", func(r chi.Router) {
				r.Use(requireRole(constants.RoleStudent))
				r.Get("/attendance", s.handleStudentReport)
			})
		})
	})

	return r
}
