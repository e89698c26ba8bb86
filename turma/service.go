package turma

import (
	"encoding/json"
	"errors"
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
	Auth         *auth.Auth
	TurmaManager *Manager
	Logger       *zap.Logger
}

// Service is the turma API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the turma API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.TurmaManager == nil {
		return nil, fmt.Errorf("nil TurmaManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// TurmaRequest is the model for creating or updating a turma
type TurmaRequest struct {
	CourseID  string    `json:"courseId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
	Schedule  string    `json:"schedule"`
	Capacity  int       `json:"capacity" validate:"min=0"`
}

func (s *Service) newTurma(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	var req TurmaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	if req.EndDate.Before(req.StartDate) {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("End date cannot precede start date"))
		return
	}

	t := &Turma{
		CentroID:  claims.CentroID,
		CourseID:  req.CourseID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Schedule:  req.Schedule,
		Capacity:  req.Capacity,
	}
	if err := s.TurmaManager.Create(ctx, t); err != nil {
		s.Logger.Error("Unable to create turma",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to create turma"))
		return
	}

	resp.WriteResponse(w, r, t)
}

func (s *Service) listTurmas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	results, err := s.TurmaManager.List(ctx, claims.CentroID)
	if err != nil {
		s.Logger.Error("Unable to list turmas",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of turmas"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getTurma(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	turmaID := chi.URLParam(r, "id")

	t, err := s.TurmaManager.GetByID(ctx, claims.CentroID, turmaID)
	if err != nil {
		s.Logger.Error("Unable to query turma",
			zap.Error(err),
			zap.String("TurmaID", turmaID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the turma"))
		return
	}
	if t == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find turma with specific ID"))
		return
	}

	resp.WriteResponse(w, r, t)
}

// EnrollRequest is the model for enrolling a student into a turma
type EnrollRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}

func (s *Service) enroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	turmaID := chi.URLParam(r, "id")

	logger := s.Logger.With(
		zap.String("CentroID", claims.CentroID),
		zap.String("TurmaID", turmaID),
	)

	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	enrollment, err := s.TurmaManager.Enroll(ctx, claims.CentroID, turmaID, req.StudentID)
	if errors.Is(err, ErrTurmaFull) {
		resp.WriteError(w, r, resp.ErrConflict().AddMessages("Turma is at capacity"))
		return
	}
	if errors.Is(err, ErrAlreadyEnrolled) {
		resp.WriteError(w, r, resp.ErrConflict().AddMessages("Student is already enrolled"))
		return
	}
	if err != nil {
		logger.Error("Unable to enroll student",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to enroll student"))
		return
	}
	if enrollment == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find turma with specific ID"))
		return
	}

	resp.WriteResponse(w, r, enrollment)
}

func (s *Service) listEnrollments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	turmaID := chi.URLParam(r, "id")

	// scope check before exposing the roster
	t, err := s.TurmaManager.GetByID(ctx, claims.CentroID, turmaID)
	if err != nil {
		s.Logger.Error("Unable to query turma",
			zap.Error(err),
			zap.String("TurmaID", turmaID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of enrollments"))
		return
	}
	if t == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find turma with specific ID"))
		return
	}

	results, err := s.TurmaManager.ListEnrollments(ctx, turmaID)
	if err != nil {
		s.Logger.Error("Unable to list enrollments",
			zap.Error(err),
			zap.String("TurmaID", turmaID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of enrollments"))
		return
	}

	resp.WriteResponse(w, r, results)
}

// Router will return the routes under turma API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())
	r.Use(s.Auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))

	r.Get("/", s.listTurmas)
	r.Post("/", s.newTurma)
	r.Get("/{id}", s.getTurma)
	r.Post("/{id}/enroll", s.enroll)
	r.Get("/{id}/enrollments", s.listEnrollments)

	return r
}
