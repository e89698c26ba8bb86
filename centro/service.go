package centro

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/treinix/treinix/auth"
	"github.com/treinix/treinix/broker"
	resp "github.com/treinix/treinix/response"
	"github.com/treinix/treinix/user"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth          *auth.Auth
	CentroManager *Manager
	UserManager   *user.Manager
	Publisher     broker.Publisher
	Logger        *zap.Logger
}

// Service is the centro API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the centro API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.CentroManager == nil {
		return nil, fmt.Errorf("nil CentroManager is invalid")
	}
	if option.UserManager == nil {
		return nil, fmt.Errorf("nil UserManager is invalid")
	}
	if option.Publisher == nil {
		return nil, fmt.Errorf("nil Publisher is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// RegisterRequest is the model of a new training center signing up.
// Registration creates the centro and its first admin account together.
type RegisterRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	AdminName  string `json:"adminName" validate:"required"`
	AdminEmail string `json:"adminEmail" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
}

func (s *Service) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	logger := s.Logger.With(zap.String("Email", req.Email))

	existing, err := s.CentroManager.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error("Unable to check for existing centro",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to register"))
		return
	}
	if existing != nil {
		resp.WriteError(w, r, resp.ErrConflict().AddMessages("Email already registered"))
		return
	}

	c, err := s.CentroManager.NewCentro(ctx, NewCentroOption{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		logger.Error("Unable to create centro",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to register"))
		return
	}

	admin, err := s.UserManager.NewUser(ctx, user.NewUserOption{
		CentroID: c.ID,
		Name:     req.AdminName,
		Email:    req.AdminEmail,
		Password: req.Password,
		Role:     auth.RoleAdmin,
	})
	if err != nil {
		logger.Error("Unable to create admin user for centro",
			zap.Error(err),
			zap.String("CentroID", c.ID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to register"))
		return
	}

	if err := s.Auth.RequestConfirm(ctx, admin.ID, admin.Email); err != nil {
		logger.Error("Unable to send confirmation email",
			zap.Error(err),
		)
		// fail through: the account exists, confirmation can be re-requested
	}

	resp.WriteResponse(w, r, c)
}

func (s *Service) getSelf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	c, err := s.CentroManager.GetByID(ctx, claims.CentroID)
	if err != nil {
		s.Logger.Error("Unable to query centro",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the centro"))
		return
	}
	if c == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find centro"))
		return
	}

	resp.WriteResponse(w, r, c)
}

// UpdateProfileRequest is the model for a centro updating its own contact info
type UpdateProfileRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (s *Service) updateSelf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(zap.String("CentroID", claims.CentroID))

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	c, err := s.CentroManager.GetByID(ctx, claims.CentroID)
	if err != nil {
		logger.Error("Unable to query centro",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update centro"))
		return
	}
	if c == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find centro"))
		return
	}

	c.Name = req.Name
	c.Phone = req.Phone
	c.Address = req.Address
	if err := s.CentroManager.Update(ctx, c); err != nil {
		logger.Error("Unable to update centro",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update centro"))
		return
	}

	resp.WriteResponse(w, r, c)
}

func (s *Service) listCentros(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.CentroManager.List(ctx)
	if err != nil {
		s.Logger.Error("Unable to list centros",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of centros"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getCentro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	centroID := chi.URLParam(r, "id")

	c, err := s.CentroManager.GetByID(ctx, centroID)
	if err != nil {
		s.Logger.Error("Unable to query centro",
			zap.Error(err),
			zap.String("CentroID", centroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the centro"))
		return
	}
	if c == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find centro with specific ID"))
		return
	}

	resp.WriteResponse(w, r, c)
}

func (s *Service) setBlocked(blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centroID := chi.URLParam(r, "id")

		logger := s.Logger.With(zap.String("CentroID", centroID))

		c, err := s.CentroManager.GetByID(ctx, centroID)
		if err != nil {
			logger.Error("Unable to query centro",
				zap.Error(err),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update centro status"))
			return
		}
		if c == nil {
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find centro with specific ID"))
			return
		}

		status := StatusBlocked
		event := broker.EventCentroBlocked
		if !blocked {
			// unblock restores the pre-block standing as best we can tell:
			// an unexpired trial window means trial, otherwise pending until
			// the operator approves a subscription
			status = StatusPending
			event = broker.EventCentroUnblocked
			if c.TrialEndsAt != nil && c.TrialEndsAt.After(time.Now()) {
				status = StatusTrial
			}
		}

		if err := s.CentroManager.SetStatus(ctx, centroID, status); err != nil {
			logger.Error("Unable to update centro status",
				zap.Error(err),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update centro status"))
			return
		}

		if err := s.Publisher.Publish(broker.Event{
			Type:     event,
			CentroID: centroID,
			EntityID: centroID,
			At:       time.Now(),
		}); err != nil {
			logger.Error("Unable to publish centro status event",
				zap.Error(err),
			)
			// fail through: as long as database state is consistent, clients will refetch
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Router will return the routes under centro API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.register)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware())
		r.Get("/me", s.getSelf)

		r.Group(func(r chi.Router) {
			r.Use(s.Auth.RequireRole(auth.RoleAdmin))
			r.Patch("/me", s.updateSelf)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.Auth.RequireRole(auth.RoleOperator))
			r.Get("/", s.listCentros)
			r.Get("/{id}", s.getCentro)
			r.Post("/{id}/block", s.setBlocked(true))
			r.Post("/{id}/unblock", s.setBlocked(false))
		})
	})

	return r
}
