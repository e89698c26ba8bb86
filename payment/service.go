package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/treinix/treinix/auth"
	"github.com/treinix/treinix/broker"
	resp "github.com/treinix/treinix/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth           *auth.Auth
	PaymentManager *Manager
	Publisher      broker.Publisher
	Logger         *zap.Logger
}

// Service is the payment API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the payment API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.PaymentManager == nil {
		return nil, fmt.Errorf("nil PaymentManager is invalid")
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

// NewPaymentRequest is the model of a staff member recording a new obligation
type NewPaymentRequest struct {
	StudentID    string          `json:"studentId" validate:"required"`
	TurmaID      string          `json:"turmaId" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Installments int             `json:"installments" validate:"required,min=1,max=2"`
	Method       string          `json:"paymentMethod" validate:"required,oneof=cash transfer multicaixa"`
	StartDate    *time.Time      `json:"startDate"`
}

func (s *Service) newPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(zap.String("CentroID", claims.CentroID))

	var req NewPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}
	if !req.Amount.IsPositive() {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Amount must be positive"))
		return
	}

	opt := NewPaymentOption{
		CentroID:     claims.CentroID,
		StudentID:    req.StudentID,
		TurmaID:      req.TurmaID,
		Amount:       req.Amount,
		Installments: req.Installments,
		Method:       Method(req.Method),
	}
	if req.StartDate != nil {
		opt.StartDate = *req.StartDate
	}

	p, err := s.PaymentManager.NewPayment(ctx, opt)
	if err != nil {
		logger.Error("Unable to create payment",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Unable to create payment"))
		return
	}

	s.publish(broker.EventPaymentCreated, p)

	resp.WriteResponse(w, r, p)
}

func (s *Service) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	studentID := r.URL.Query().Get("studentId")
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

	results, err := s.PaymentManager.List(ctx, ListOption{
		CentroID:  claims.CentroID,
		StudentID: studentID,
		Before:    parsedTime,
		Limit:     20,
	})
	if err != nil {
		s.Logger.Error("Unable to list payments",
			zap.Error(err),
			zap.String("CentroID", claims.CentroID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of payments"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	paymentID := chi.URLParam(r, "id")

	p, err := s.PaymentManager.GetByID(ctx, claims.CentroID, paymentID)
	if err != nil {
		s.Logger.Error("Unable to query payment",
			zap.Error(err),
			zap.String("PaymentID", paymentID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the payment"))
		return
	}
	if p == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find payment with specific ID"))
		return
	}

	resp.WriteResponse(w, r, p)
}

func (s *Service) payInstallment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	installmentID := chi.URLParam(r, "id")

	logger := s.Logger.With(
		zap.String("CentroID", claims.CentroID),
		zap.String("InstallmentID", installmentID),
	)

	p, err := s.PaymentManager.MarkPaid(ctx, claims.CentroID, installmentID)
	if err != nil {
		s.writeSettleError(w, r, logger, err)
		return
	}
	if p == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find installment with specific ID"))
		return
	}

	s.publish(broker.EventInstallmentPaid, p)

	resp.WriteResponse(w, r, p)
}

func (s *Service) signNext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	paymentID := chi.URLParam(r, "id")

	logger := s.Logger.With(
		zap.String("CentroID", claims.CentroID),
		zap.String("PaymentID", paymentID),
	)

	p, err := s.PaymentManager.SignNext(ctx, claims.CentroID, paymentID)
	if err != nil {
		s.writeSettleError(w, r, logger, err)
		return
	}
	if p == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find payment with specific ID"))
		return
	}

	s.publish(broker.EventInstallmentPaid, p)

	resp.WriteResponse(w, r, p)
}

func (s *Service) writeSettleError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrAlreadyPaid):
		resp.WriteError(w, r, resp.ErrConflict().AddMessages("Installment is already paid"))
	case errors.Is(err, ErrAllPaid):
		resp.WriteError(w, r, resp.ErrConflict().AddMessages("All installments are already paid"))
	case errors.Is(err, ErrCancelled):
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Payment is cancelled"))
	default:
		logger.Error("Unable to settle installment",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to settle installment"))
	}
}

func (s *Service) cancelPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	paymentID := chi.URLParam(r, "id")

	logger := s.Logger.With(
		zap.String("CentroID", claims.CentroID),
		zap.String("PaymentID", paymentID),
	)

	p, err := s.PaymentManager.Cancel(ctx, claims.CentroID, paymentID)
	if err != nil {
		logger.Error("Unable to cancel payment",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to cancel payment"))
		return
	}
	if p == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find payment with specific ID"))
		return
	}

	s.publish(broker.EventPaymentCancelled, p)

	resp.WriteResponse(w, r, p)
}

func (s *Service) publish(event broker.EventType, p *Payment) {
	if err := s.Publisher.Publish(broker.Event{
		Type:     event,
		CentroID: p.CentroID,
		EntityID: p.ID,
		At:       time.Now(),
	}); err != nil {
		s.Logger.Error("Unable to publish payment event",
			zap.Error(err),
			zap.String("PaymentID", p.ID),
		)
		// fail through: as long as database state is consistent, clients will refetch
	}
}

// Router will return the routes under payment API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())
	r.Use(s.Auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))

	r.Get("/", s.listPayments)
	r.Post("/", s.newPayment)
	r.Get("/{id}", s.getPayment)
	r.Post("/{id}/signNext", s.signNext)
	r.Post("/installments/{id}/pay", s.payInstallment)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireRole(auth.RoleAdmin))
		r.Post("/{id}/cancel", s.cancelPayment)
	})

	return r
}
