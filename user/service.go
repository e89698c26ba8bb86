package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/treinix/treinix/auth"
	resp "github.com/treinix/treinix/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth        *auth.Auth
	UserManager *Manager
	Logger      *zap.Logger
}

// Service is the user API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the user API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.UserManager == nil {
		return nil, fmt.Errorf("nil UserManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// LoginRequest is the model of a credential login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	logger := s.Logger.With(zap.String("Email", req.Email))

	u, err := s.UserManager.Authenticate(ctx, req.Email, req.Password)
	if errors.Is(err, ErrBadCredentials) {
		resp.WriteError(w, r, resp.ErrUnauthorized().AddMessages("Invalid email or password"))
		return
	}
	if errors.Is(err, ErrNotConfirmed) {
		resp.WriteError(w, r, resp.ErrForbidden().AddMessages("Account pending email confirmation"))
		return
	}
	if err != nil {
		logger.Error("Unable to authenticate user",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to login"))
		return
	}

	jwtToken, err := s.Auth.CreateTokenFromClaims(auth.Claims{
		ID:       u.ID,
		CentroID: u.CentroID,
		Email:    u.Email,
		Role:     u.Role,
	})
	if err != nil {
		logger.Error("Unable to generate token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponse(w, r, struct {
		Token string `json:"token"`
	}{
		Token: jwtToken,
	})
}

func (s *Service) confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := chi.URLParam(r, "uid")
	token := chi.URLParam(r, "token")

	logger := s.Logger.With(zap.String("UserID", uid))

	valid, err := s.Auth.VerifyConfirm(ctx, uid, token)
	if err != nil {
		logger.Error("Unable to verify confirmation token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to verify confirmation token"))
		return
	}
	if !valid {
		resp.WriteError(w, r, resp.ErrUnauthorized().AddMessages("Invalid or expired confirmation token"))
		return
	}

	if err := s.UserManager.Confirm(ctx, uid); err != nil {
		logger.Error("Unable to confirm user",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to confirm account"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// NewStaffRequest is the model for a centro admin creating a staff account
type NewStaffRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=Admin Staff"`
}

func (s *Service) newStaff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(zap.String("CentroID", claims.CentroID))

	var req NewStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	existing, err := s.UserManager.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error("Unable to check for existing user",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to create user"))
		return
	}
	if existing != nil {
		resp.WriteError(w, r, resp.ErrConflict().AddMessages("Email already registered"))
		return
	}

	u, err := s.UserManager.NewUser(ctx, NewUserOption{
		CentroID: claims.CentroID,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     auth.Role(req.Role),
	})
	if err != nil {
		logger.Error("Unable to create user",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to create user"))
		return
	}

	if err := s.Auth.RequestConfirm(ctx, u.ID, u.Email); err != nil {
		logger.Error("Unable to send confirmation email",
			zap.Error(err),
		)
		// fail through: the account exists, confirmation can be re-requested
	}

	resp.WriteResponse(w, r, u)
}

func (s *Service) listStaff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	results, err := s.UserManager.List(ctx, claims.CentroID)
	if err != nil {
		s.Logger.Error("Unable to list users",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of users"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) deleteStaff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	userID := chi.URLParam(r, "id")

	if userID == claims.ID {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Cannot delete your own account"))
		return
	}

	if err := s.UserManager.Delete(ctx, claims.CentroID, userID); err != nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find user with specific ID"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Router will return the routes under user API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/login", s.login)
	r.Get("/confirm/{uid}/{token}", s.confirm)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware())
		r.Use(s.Auth.RequireRole(auth.RoleAdmin))
		r.Get("/", s.listStaff)
		r.Post("/", s.newStaff)
		r.Delete("/{id}", s.deleteStaff)
	})

	return r
}
