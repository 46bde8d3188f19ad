package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cotuzatours/booking-backend/internal/models"
)

const auditWriteTimeout = 5 * time.Second

// PaymentAuditStore persists payment audit entries
type PaymentAuditStore interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// PaymentAuditService records payment events without failing the caller.
// A failed write is logged; the payment flow continues.
type PaymentAuditService struct {
	store  PaymentAuditStore
	logger *logrus.Logger
}

// NewPaymentAuditService creates a new payment audit service
func NewPaymentAuditService(store PaymentAuditStore, logger *logrus.Logger) *PaymentAuditService {
	return &PaymentAuditService{
		store:  store,
		logger: logger,
	}
}

// Record stores an audit entry. The write outlives a cancelled request context.
func (s *PaymentAuditService) Record(ctx context.Context, audit *models.PaymentAudit) {
	if s == nil || s.store == nil || audit == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := s.store.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":   audit.EventType,
			"event_source": audit.EventSource,
		}).Error("AUDIT ERROR: payment event not recorded")
	}
}
