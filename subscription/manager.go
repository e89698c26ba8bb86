package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Subscriptions
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for subscriptions
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if err := db.AutoMigrate(&Subscription{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize subscription.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// RequestOption contains the details of a centro asking for a plan
type RequestOption struct {
	CentroID string
	Plan     string
	Months   int
}

// Request creates a pending subscription awaiting operator approval. The
// billing window is stamped here and never recomputed.
func (m *Manager) Request(ctx context.Context, opt RequestOption) (*Subscription, error) {
	if len(opt.CentroID) == 0 {
		return nil, fmt.Errorf("RequestOption.CentroID is required")
	}
	if opt.Months <= 0 {
		return nil, fmt.Errorf("RequestOption.Months must be positive")
	}
	start := time.Now()
	sub := &Subscription{
		ID:            uuid.New().String(),
		CentroID:      opt.CentroID,
		Plan:          opt.Plan,
		Months:        opt.Months,
		Status:        StatusPending,
		StartDate:     start,
		EndDate:       start.AddDate(0, opt.Months, 0),
		PaymentStatus: PaymentPending,
	}
	result := m.db.WithContext(ctx).Create(sub)
	if result.Error != nil {
		m.logger.Error("Unable to create new subscription in database",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create subscription")
	}
	return sub, nil
}

// GetByID will try to return the subscription in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription

	result := m.db.WithContext(ctx).First(&sub, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get subscription by id")
	}

	return &sub, nil
}

// ListOption customizes the subscription history query
type ListOption struct {
	CentroID string
	Before   time.Time
	Limit    int
}

// List returns the subscription history of a centro, newest first
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Subscription, error) {
	if len(opt.CentroID) == 0 {
		return nil, fmt.Errorf("ListOption.CentroID is required")
	}
	baseQuery := m.db.WithContext(ctx).Order("created_at desc").Where("centro_id = ?", opt.CentroID)
	if opt.Limit > 0 {
		baseQuery = baseQuery.Limit(opt.Limit)
	}
	if !opt.Before.IsZero() {
		baseQuery = baseQuery.Where("created_at < ?", opt.Before)
	}

	results := make([]Subscription, 0, 1)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// ListActive returns the active subscriptions of a centro. The evaluator
// needs all of them, not just the latest.
func (m *Manager) ListActive(ctx context.Context, centroID string) ([]Subscription, error) {
	results := make([]Subscription, 0, 1)
	result := m.db.WithContext(ctx).
		Where("centro_id = ?", centroID).
		Where("status = ?", StatusActive).
		Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// ListPending returns all subscriptions awaiting operator review, oldest first
func (m *Manager) ListPending(ctx context.Context) ([]Subscription, error) {
	results := make([]Subscription, 0, 1)
	result := m.db.WithContext(ctx).
		Order("created_at asc").
		Where("payment_status = ?", PaymentPending).
		Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// Approve marks the purchase as paid and the subscription as active.
// Operator action only; returns the updated subscription.
func (m *Manager) Approve(ctx context.Context, id string) (*Subscription, error) {
	return m.review(ctx, id, PaymentApproved, StatusActive)
}

// Reject marks the purchase as rejected. The subscription never becomes
// active and is recorded as expired in the history.
func (m *Manager) Reject(ctx context.Context, id string) (*Subscription, error) {
	return m.review(ctx, id, PaymentRejected, StatusExpired)
}

func (m *Manager) review(ctx context.Context, id string, payment PaymentStatus, status Status) (*Subscription, error) {
	var sub Subscription
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookupRes := tx.First(&sub, "id = ?", id)
		if lookupRes.Error != nil {
			return lookupRes.Error
		}
		if sub.PaymentStatus != PaymentPending {
			return fmt.Errorf("subscription %s has already been reviewed", id)
		}
		sub.PaymentStatus = payment
		sub.Status = status
		return tx.Save(&sub).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		m.logger.Error("Unable to review subscription",
			zap.Error(err),
			zap.String("SubscriptionID", id),
		)
		return nil, extErrors.Wrap(err, "Cannot review subscription")
	}
	return &sub, nil
}
