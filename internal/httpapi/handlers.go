package httpapi

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nsut-attendance/backend/internal/auth"
	constants "github.com/nsut-attendance/backend/internal/constants"
	"github.com/nsut-attendance/backend/internal/logger"
	model "github.com/nsut-attendance/backend/models/attendance"
	"github.com/nsut-attendance/backend/models/department"
	"github.com/nsut-attendance/backend/pkg/attendance"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"userType" validate:"required,oneof=student teacher"`
	// Older clients send user_type.
	LegacyUserType string `json:"user_type"`
}

var validate = attendance.NewValidator()

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.UserType == "" {
		req.UserType = req.LegacyUserType
	}
	if err := validate.Struct(req); err != nil {
		writeFailure(w, r, attendance.ValidationFromValidator(err))
		return
	}

	session, err := s.login.Login(r.Context(), req.Email, req.Password, req.UserType)
	if err != nil {
		logger.FromContext(r.Context()).Info("login rejected", "email", req.Email, "user_type", req.UserType)
		writeFailure(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("login", "user_id", session.Identity.ID, "role", session.Identity.Role)
	writeOK(w, envelope{
		"message":    "Login successful",
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session,
		"redirect":   session.Identity.Role + "_dashboard",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	if id.Role == constants.RoleStudent {
		student, err := s.dir.StudentByID(r.Context(), id.ID)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		if student == nil {
			writeError(w, http.StatusNotFound, "account no longer exists")
			return
		}
		writeOK(w, envelope{"role": id.Role, "profile": student})
		return
	}

	teacher, err := s.dir.TeacherByID(r.Context(), id.ID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if teacher == nil {
		writeError(w, http.StatusNotFound, "account no longer exists")
		return
	}
	writeOK(w, envelope{"role": id.Role, "profile": teacher})
}

func (s *Server) handleTeacherSubjects(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	subjects, err := s.dir.TeacherSubjects(r.Context(), id.ID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, envelope{"subjects": subjects})
}

func parseSubjectID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := parseSubjectID(r.URL.Query().Get("subject_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "subject_id must be a positive integer")
		return
	}
	if !s.requireAssigned(w, r, subjectID) {
		return
	}

	subject, err := s.dir.Subject(r.Context(), subjectID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if subject == nil {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}

	id, _ := auth.IdentityFrom(r.Context())
	roster, day, err := s.ledger.SessionRoster(r.Context(), id, subjectID, r.URL.Query().Get("date"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeOK(w, envelope{
		"subject":  subject,
		"date":     day.Format(constants.DateLayout),
		"students": roster,
	})
}

func (s *Server) handleReplaceAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendance.ReplaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SubjectID > 0 && !s.requireAssigned(w, r, req.SubjectID) {
		return
	}

	id, _ := auth.IdentityFrom(r.Context())
	n, err := s.ledger.ReplaceAttendance(r.Context(), id, req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeOK(w, envelope{
		"message":        "Attendance saved successfully",
		"inserted_count": n,
	})
}

// loadSubjectSummary writes the failure response itself and reports ok=false
// when the summary cannot be served.
func (s *Server) loadSubjectSummary(w http.ResponseWriter, r *http.Request) (*department.Subject, []model.StudentTally, bool) {
	subjectID, ok := parseSubjectID(chi.URLParam(r, "subjectID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "subject id must be a positive integer")
		return nil, nil, false
	}
	if !s.requireAssigned(w, r, subjectID) {
		return nil, nil, false
	}

	subject, err := s.dir.Subject(r.Context(), subjectID)
	if err != nil {
		writeFailure(w, r, err)
		return nil, nil, false
	}
	if subject == nil {
		writeError(w, http.StatusNotFound, "subject not found")
		return nil, nil, false
	}

	id, _ := auth.IdentityFrom(r.Context())
	students, err := s.ledger.SubjectSummary(r.Context(), id, subjectID)
	if err != nil {
		writeFailure(w, r, err)
		return nil, nil, false
	}
	return subject, students, true
}

func (s *Server) handleSubjectSummary(w http.ResponseWriter, r *http.Request) {
	subject, students, ok := s.loadSubjectSummary(w, r)
	if !ok {
		return
	}
	writeOK(w, envelope{"subject": subject, "students": students})
}

func (s *Server) handleSubjectSummaryCSV(w http.ResponseWriter, r *http.Request) {
	subject, students, ok := s.loadSubjectSummary(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", subject.Code+"-attendance.csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"roll_number", "name", "total_classes", "classes_attended", "classes_missed", "attendance_percentage"})
	for _, st := range students {
		_ = cw.Write([]string{
			st.RollNumber,
			st.Name,
			strconv.FormatInt(st.Total, 10),
			strconv.FormatInt(st.Attended, 10),
			strconv.FormatInt(st.Missed, 10),
			strconv.FormatFloat(st.Percentage, 'f', 2, 64),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.FromContext(r.Context()).Warn("failed to write csv", "error", err)
	}
}

func (s *Server) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	report, err := s.ledger.StudentReport(r.Context(), id, id.ID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeOK(w, envelope{"overall": report.Overall, "subjects": report.Subjects})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, envelope{"success": false, "status": "unavailable"})
		return
	}
	writeOK(w, envelope{"status": "ok"})
}
