package course

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/treinix/treinix/auth"
	resp "github.com/treinix/treinix/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth          *auth.Auth
	CourseManager *Manager
	Logger        *zap.Logger
}

// Service is the course API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the course API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.CourseManager == nil {
		return nil, fmt.Errorf("nil CourseManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CourseRequest is the model for creating or updating a course
type CourseRequest struct {
	Name           string          `json:"name" validate:"required"`
	Description    string          `json:"description"`
	DurationMonths int             `json:"durationMonths" validate:"required,min=1"`
	Price          decimal.Decimal `json:"price"`
	Active         *bool           `json:"active"`
}

func (s *Service) newCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	var req CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	if req.Price.IsNegative() {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Price cannot be negative"))
		return
	}

	c := &Course{
		CentroID:       claims.CentroID,
		Name:           req.Name,
		Description:    req.Description,
		DurationMonths: req.DurationMonths,
		Price:          req.Price,
		Active:         true,
	}
	if err := s.CourseManager.Create(ctx, c); err != nil {
		s.Logger.Error("Unable to create course",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to create course"))
		return
	}

	resp.WriteResponse(w, r, c)
}

func (s *Service) listCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	activeOnly := r.URL.Query().Get("all") == ""

	results, err := s.CourseManager.List(ctx, claims.CentroID, activeOnly)
	if err != nil {
		s.Logger.Error("Unable to list courses",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of courses"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	courseID := chi.URLParam(r, "id")

	c, err := s.CourseManager.GetByID(ctx, claims.CentroID, courseID)
	if err != nil {
		s.Logger.Error("Unable to query course",
			zap.Error(err),
			zap.String("CourseID", courseID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the course"))
		return
	}
	if c == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find course with specific ID"))
		return
	}

	resp.WriteResponse(w, r, c)
}

func (s *Service) updateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	courseID := chi.URLParam(r, "id")

	var req CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	c, err := s.CourseManager.GetByID(ctx, claims.CentroID, courseID)
	if err != nil {
		s.Logger.Error("Unable to query course",
			zap.Error(err),
			zap.String("CourseID", courseID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update course"))
		return
	}
	if c == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find course with specific ID"))
		return
	}

	c.Name = req.Name
	c.Description = req.Description
	c.DurationMonths = req.DurationMonths
	c.Price = req.Price
	if req.Active != nil {
		c.Active = *req.Active
	}
	if err := s.CourseManager.Update(ctx, c); err != nil {
		s.Logger.Error("Unable to update course",
			zap.Error(err),
			zap.String("CourseID", courseID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update course"))
		return
	}

	resp.WriteResponse(w, r, c)
}

// Router will return the routes under course API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())
	r.Use(s.Auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))

	r.Get("/", s.listCourses)
	r.Get("/{id}", s.getCourse)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireRole(auth.RoleAdmin))
		r.Post("/", s.newCourse)
		r.Put("/{id}", s.updateCourse)
	})

	return r
}
