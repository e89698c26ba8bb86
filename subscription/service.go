package subscription

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/treinix/treinix/auth"
	"github.com/treinix/treinix/broker"
	"github.com/treinix/treinix/centro"
	resp "github.com/treinix/treinix/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth                *auth.Auth
	SubscriptionManager *Manager
	CentroManager       *centro.Manager
	Gate                *Gate
	Publisher           broker.Publisher
	Logger              *zap.Logger
}

// Service is the subscription API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the subscription API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.CentroManager == nil {
		return nil, fmt.Errorf("nil CentroManager is invalid")
	}
	if option.Gate == nil {
		return nil, fmt.Errorf("nil Gate is invalid")
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

// RequestPlanRequest is the model of a centro asking for a billing plan
type RequestPlanRequest struct {
	Plan   string `json:"plan" validate:"required"`
	Months int    `json:"months" validate:"required,min=1,max=12"`
}

func (s *Service) requestPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(zap.String("CentroID", claims.CentroID))

	var req RequestPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	sub, err := s.SubscriptionManager.Request(ctx, RequestOption{
		CentroID: claims.CentroID,
		Plan:     req.Plan,
		Months:   req.Months,
	})
	if err != nil {
		logger.Error("Unable to request subscription",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to request subscription"))
		return
	}

	if err := s.CentroManager.SetStatus(ctx, claims.CentroID, centro.StatusPending); err != nil {
		logger.Error("Unable to flag centro as pending",
			zap.Error(err),
		)
		// fail through: the subscription row is the source of truth for the operator queue
	}

	s.publish(broker.EventSubscriptionRequest, sub)

	resp.WriteResponse(w, r, sub)
}

func (s *Service) listHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	before := r.URL.Query().Get("before")

	var parsedTime time.Time
	if before != "" {
		var err error
		parsedTime, err = time.Parse(time.RFC3339Nano, before)
		if err != nil {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid before param"))
			return
		}
	}

	results, err := s.SubscriptionManager.List(ctx, ListOption{
		CentroID: claims.CentroID,
		Before:   parsedTime,
		Limit:    10,
	})
	if err != nil {
		s.Logger.Error("Unable to list subscriptions",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of subscriptions"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) checkAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	verdict := s.Gate.Check(ctx, claims.CentroID)

	resp.WriteResponse(w, r, verdict)
}

func (s *Service) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(zap.String("CentroID", claims.CentroID))

	c, err := s.CentroManager.GetByID(ctx, claims.CentroID)
	if err != nil {
		logger.Error("Unable to query centro",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot compute subscription summary"))
		return
	}
	subs, err := s.SubscriptionManager.ListActive(ctx, claims.CentroID)
	if err != nil {
		logger.Error("Unable to list active subscriptions",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot compute subscription summary"))
		return
	}

	resp.WriteResponse(w, r, Summarize(time.Now(), c, subs))
}

func (s *Service) listPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := s.SubscriptionManager.ListPending(ctx)
	if err != nil {
		s.Logger.Error("Unable to list pending subscriptions",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of pending subscriptions"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "id")

	logger := s.Logger.With(zap.String("SubscriptionID", subscriptionID))

	sub, err := s.SubscriptionManager.Approve(ctx, subscriptionID)
	if err != nil {
		logger.Error("Unable to approve subscription",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Unable to approve subscription"))
		return
	}
	if sub == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID"))
		return
	}

	if err := s.CentroManager.SetStatus(ctx, sub.CentroID, centro.StatusActive); err != nil {
		logger.Error("Unable to activate centro",
			zap.Error(err),
			zap.String("CentroID", sub.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Subscription approved but centro activation failed"))
		return
	}

	s.Gate.Invalidate(ctx, sub.CentroID)
	s.publish(broker.EventSubscriptionApproved, sub)

	resp.WriteResponse(w, r, sub)
}

func (s *Service) reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "id")

	logger := s.Logger.With(zap.String("SubscriptionID", subscriptionID))

	sub, err := s.SubscriptionManager.Reject(ctx, subscriptionID)
	if err != nil {
		logger.Error("Unable to reject subscription",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Unable to reject subscription"))
		return
	}
	if sub == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID"))
		return
	}

	s.Gate.Invalidate(ctx, sub.CentroID)
	s.publish(broker.EventSubscriptionRejected, sub)

	resp.WriteResponse(w, r, sub)
}

func (s *Service) publish(event broker.EventType, sub *Subscription) {
	if err := s.Publisher.Publish(broker.Event{
		Type:     event,
		CentroID: sub.CentroID,
		EntityID: sub.ID,
		At:       time.Now(),
	}); err != nil {
		s.Logger.Error("Unable to publish subscription event",
			zap.Error(err),
			zap.String("SubscriptionID", sub.ID),
		)
		// fail through: as long as database state is consistent, clients will refetch
	}
}

// Router will return the routes under subscription API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())

	r.Get("/access", s.checkAccess)
	r.Get("/summary", s.getSummary)
	r.Get("/", s.listHistory)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireRole(auth.RoleAdmin))
		r.Post("/", s.requestPlan)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireRole(auth.RoleOperator))
		r.Get("/pending", s.listPending)
		r.Post("/{id}/approve", s.approve)
		r.Post("/{id}/reject", s.reject)
	})

	return r
}
