package student

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/treinix/treinix/auth"
	resp "github.com/treinix/treinix/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth           *auth.Auth
	StudentManager *Manager
	Logger         *zap.Logger
}

// Service is the student API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the student API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.StudentManager == nil {
		return nil, fmt.Errorf("nil StudentManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// StudentRequest is the model for creating or updating a student
type StudentRequest struct {
	Name       string     `json:"name" validate:"required"`
	Email      string     `json:"email" validate:"omitempty,email"`
	Phone      string     `json:"phone"`
	BirthDate  *time.Time `json:"birthDate"`
	DocumentID string     `json:"documentId"`
}

func (s *Service) newStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	st := &Student{
		CentroID:   claims.CentroID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		BirthDate:  req.BirthDate,
		DocumentID: req.DocumentID,
	}
	if err := s.StudentManager.Create(ctx, st); err != nil {
		s.Logger.Error("Unable to create student",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to create student"))
		return
	}

	resp.WriteResponse(w, r, st)
}

func (s *Service) listStudents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	results, err := s.StudentManager.List(ctx, claims.CentroID)
	if err != nil {
		s.Logger.Error("Unable to list students",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of students"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	studentID := chi.URLParam(r, "id")

	st, err := s.StudentManager.GetByID(ctx, claims.CentroID, studentID)
	if err != nil {
		s.Logger.Error("Unable to query student",
			zap.Error(err),
			zap.String("StudentID", studentID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the student"))
		return
	}
	if st == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find student with specific ID"))
		return
	}

	resp.WriteResponse(w, r, st)
}

func (s *Service) updateStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	studentID := chi.URLParam(r, "id")

	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	st, err := s.StudentManager.GetByID(ctx, claims.CentroID, studentID)
	if err != nil {
		s.Logger.Error("Unable to query student",
			zap.Error(err),
			zap.String("StudentID", studentID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update student"))
		return
	}
	if st == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find student with specific ID"))
		return
	}

	st.Name = req.Name
	st.Email = req.Email
	st.Phone = req.Phone
	st.BirthDate = req.BirthDate
	st.DocumentID = req.DocumentID
	if err := s.StudentManager.Update(ctx, st); err != nil {
		s.Logger.Error("Unable to update student",
			zap.Error(err),
			zap.String("StudentID", studentID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update student"))
		return
	}

	resp.WriteResponse(w, r, st)
}

func (s *Service) deleteStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	studentID := chi.URLParam(r, "id")

	if err := s.StudentManager.Delete(ctx, claims.CentroID, studentID); err != nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find student with specific ID"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Router will return the routes under student API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())
	r.Use(s.Auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))

	r.Get("/", s.listStudents)
	r.Post("/", s.newStudent)
	r.Get("/{id}", s.getStudent)
	r.Put("/{id}", s.updateStudent)
	r.Delete("/{id}", s.deleteStudent)

	return r
}
