package orders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/notify"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

var ErrInvalidTransition = apperr.ConflictErr("Order cannot take this fulfillment action.")

// AdminService drives fulfillment-status changes on materialized orders.
// Payment status is owned by the payment coordinator and the refund
// workflow; this service never touches it.
type AdminService struct {
	db       *gorm.DB
	notifier notify.Publisher
	logger   *slog.Logger
}

func NewAdminService(db *gorm.DB, notifier notify.Publisher, logger *slog.Logger) *AdminService {
	return &AdminService{db: db, notifier: notifier, logger: logger}
}

type TransitionInput struct {
	OrderID         string
	ActorUserID     string // operator user id
	Action          string // ship|deliver
	TrackingCarrier string
	TrackingNumber  string
	Note            string
}

func (s *AdminService) Transition(ctx context.Context, in TransitionInput) error {
	if in.OrderID == "" || in.ActorUserID == "" || in.Action == "" {
		return ErrInvalidTransition
	}

	var after Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order

		// row lock
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", in.OrderID).Error; err != nil {
			return err
		}

		from := o.FulfillmentStatus
		to, err := nextFulfillment(from, in.Action)
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]any{
			"fulfillment_status": to,
			"updated_at":         now,
		}
		switch to {
		case FulfillmentShipped:
			updates["shipped_at"] = now
			if c := strings.TrimSpace(in.TrackingCarrier); c != "" {
				updates["tracking_carrier"] = c
			}
			if n := strings.TrimSpace(in.TrackingNumber); n != "" {
				updates["tracking_number"] = n
			}
		case FulfillmentDelivered:
			updates["delivered_at"] = now
		}

		if err := tx.WithContext(ctx).
			Model(&Order{}).
			Where("id = ? AND fulfillment_status = ?", o.ID, from). // optimistic guard
			Updates(updates).Error; err != nil {
			return err
		}

		var notePtr *string
		if n := strings.TrimSpace(in.Note); n != "" {
			notePtr = &n
		}
		ev := OrderEvent{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ActorUserID: in.ActorUserID,
			Action:      in.Action,
			FromStatus:  from,
			ToStatus:    to,
			Note:        notePtr,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&ev).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).First(&after, "id = ?", o.ID).Error
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(notify.EventOrderStatusChanged, "order:"+after.ID, after)
	s.logger.InfoContext(ctx, "order fulfillment updated", "order_id", after.ID, "action", in.Action, "status", after.FulfillmentStatus)
	return nil
}

func nextFulfillment(from, action string) (string, error) {
	switch action {
	case "ship":
		if from == FulfillmentProcessing {
			return FulfillmentShipped, nil
		}
		return "", ErrInvalidTransition
	case "deliver":
		if from == FulfillmentShipped {
			return FulfillmentDelivered, nil
		}
		return "", ErrInvalidTransition
	default:
		return "", ErrInvalidTransition
	}
}
