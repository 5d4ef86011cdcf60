package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/orders"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/notify"
)

// ProviderEvent is the webhook audit row. The unique (provider, event_id)
// pair short-circuits exact redeliveries; the real materialize-once
// guarantee is the unique order_review_id on orders.
type ProviderEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Provider    string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"precision:3;not null"`
	ProcessedAt  *time.Time `gorm:"precision:3"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

// ConfirmationSender sends the post-payment confirmation email. Delivery
// is best-effort; the coordinator never fails on it.
type ConfirmationSender interface {
	SendOrderConfirmation(to, name, orderNumber string, totalCents int, currency string) error
}

// Coordinator turns asynchronous provider events into the one transition
// the review machine cannot drive itself, materializing the Order.
type Coordinator struct {
	db      *gorm.DB
	reviews *reviews.Service
	notify  notify.Publisher
	mail    ConfirmationSender
	logger  *slog.Logger
}

func NewCoordinator(db *gorm.DB, reviewSvc *reviews.Service, notifier notify.Publisher, mail ConfirmationSender, logger *slog.Logger) *Coordinator {
	return &Coordinator{db: db, reviews: reviewSvc, notify: notifier, mail: mail, logger: logger}
}

// RegisterHandlers wires the coordinator into the dispatch registry.
func (c *Coordinator) RegisterHandlers(reg *Registry) {
	reg.Register(EventPaymentSucceeded, c.HandlePaymentSucceeded)
	reg.Register(EventPaymentFailed, c.HandlePaymentFailed)
}

// HandlePaymentSucceeded is idempotent: the same event id is deduplicated,
// and a redelivery after materialization finds the review already in
// approved-processing and no-ops with a warning.
func (c *Coordinator) HandlePaymentSucceeded(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
	var (
		createdOrder orders.Order
		materialized bool
		snap         reviews.Snapshot
		failedEvent  *ProviderEvent
	)

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pe, dup, err := c.recordEvent(ctx, tx, providerName, ev, rawBody)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}

		review, err := c.reviews.MarkPaidTx(ctx, tx, ev.ReviewID)
		if err != nil {
			if errors.Is(err, reviews.ErrNotAwaitingPayment) {
				// redelivery after materialization, or payment raced an
				// operator rejection: no second order, no error back
				c.logger.WarnContext(ctx, "payment succeeded for review not awaiting payment; ignoring",
					"provider", providerName, "event_id", ev.EventID, "review_id", ev.ReviewID, "status", review.Status)
				return c.markProcessed(ctx, tx, pe.ID)
			}
			failedEvent = &pe
			return err
		}

		now := time.Now()
		o := orders.Order{
			ID:                uuid.NewString(),
			OrderNumber:       orders.Number(review.ID, now),
			OrderReviewID:     review.ID,
			UserID:            review.UserID,
			ItemsJSON:         review.OrderData, // frozen at submission, never re-priced
			ShippingAddress:   review.ShippingAddress,
			SubtotalCents:     review.SubtotalCents,
			ShippingCents:     review.ShippingCents,
			TaxCents:          review.TaxCents,
			TotalCents:        review.TotalCents,
			Currency:          review.Currency,
			PaymentStatus:     orders.PaymentPaid,
			FulfillmentStatus: orders.FulfillmentProcessing,
			PaymentProvider:   providerName,
			PaidAt:            now,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if ev.CaptureReference != "" {
			ref := ev.CaptureReference
			o.CaptureReference = &ref
		}
		if ev.TransactionID != "" {
			txn := ev.TransactionID
			o.TransactionID = &txn
		}

		if err := tx.WithContext(ctx).Create(&o).Error; err != nil {
			if isDup(err) {
				c.logger.WarnContext(ctx, "order already materialized for review; ignoring",
					"provider", providerName, "event_id", ev.EventID, "review_id", review.ID)
				return c.markProcessed(ctx, tx, pe.ID)
			}
			failedEvent = &pe
			return err
		}

		entry := orders.FinancialEntry{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			Event:       "payment_succeeded",
			AmountCents: o.TotalCents, // +in
			Currency:    o.Currency,
			RefType:     "payment",
			RefID:       pe.ID,
			CreatedAt:   now,
		}
		if err := ensureFinancialEntry(ctx, tx, entry); err != nil {
			failedEvent = &pe
			return err
		}

		createdOrder = o
		materialized = true
		snap = review.Snapshot()
		return c.markProcessed(ctx, tx, pe.ID)
	})
	if err != nil {
		if failedEvent != nil {
			c.auditFailure(ctx, *failedEvent, err)
		}
		c.logger.ErrorContext(ctx, "payment succeeded event failed",
			"provider", providerName, "event_id", ev.EventID, "review_id", ev.ReviewID, "err", err)
		return err
	}

	if materialized {
		c.reviews.PublishUpdated(snap)
		c.notify.Publish(notify.EventOrderStatusChanged, "order:"+createdOrder.ID, createdOrder)
		c.sendConfirmation(ctx, createdOrder, snap)
		c.logger.InfoContext(ctx, "order materialized",
			"provider", providerName, "review_id", ev.ReviewID,
			"order_id", createdOrder.ID, "order_number", createdOrder.OrderNumber)
	}
	return nil
}

// HandlePaymentFailed records the event; the review stays in
// pending-payment so a later successful attempt or operator action can
// resolve it.
func (c *Coordinator) HandlePaymentFailed(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pe, dup, err := c.recordEvent(ctx, tx, providerName, ev, rawBody)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
		return c.markProcessed(ctx, tx, pe.ID)
	})
	if err != nil {
		return err
	}
	c.logger.WarnContext(ctx, "payment failed event received",
		"provider", providerName, "event_id", ev.EventID, "review_id", ev.ReviewID)
	return nil
}

func (c *Coordinator) recordEvent(ctx context.Context, tx *gorm.DB, providerName string, ev WebhookEvent, rawBody []byte) (ProviderEvent, bool, error) {
	pe := ProviderEvent{
		ID:          uuid.NewString(),
		Provider:    providerName,
		EventID:     ev.EventID,
		EventType:   ev.Type,
		PayloadJSON: datatypes.JSON(json.RawMessage(rawBody)),
		ReceivedAt:  time.Now(),
	}
	if err := tx.WithContext(ctx).Create(&pe).Error; err != nil {
		if isDup(err) {
			var prev ProviderEvent
			if ferr := tx.WithContext(ctx).
				Where("provider = ? AND event_id = ?", providerName, ev.EventID).
				First(&prev).Error; ferr != nil {
				return ProviderEvent{}, false, ferr
			}
			if prev.ProcessedAt == nil {
				// earlier delivery failed mid-apply; retry against the
				// same audit row
				return prev, false, nil
			}
			c.logger.InfoContext(ctx, "webhook event deduplicated",
				"provider", providerName, "event_id", ev.EventID, "type", ev.Type)
			return ProviderEvent{}, true, nil
		}
		return ProviderEvent{}, false, err
	}
	return pe, false, nil
}

func (c *Coordinator) markProcessed(ctx context.Context, tx *gorm.DB, eventRowID string) error {
	now := time.Now()
	return tx.WithContext(ctx).Model(&ProviderEvent{}).
		Where("id = ?", eventRowID).
		Updates(map[string]any{"processed_at": &now, "process_error": nil}).Error
}

// auditFailure persists the failure on the audit row after the surrounding
// transaction rolled it back. The row keeps processed_at NULL, so a provider
// retry is picked up again by recordEvent instead of deduplicated.
func (c *Coordinator) auditFailure(ctx context.Context, pe ProviderEvent, cause error) {
	msg := truncate(cause.Error(), 250)
	pe.ProcessError = &msg
	err := c.db.WithContext(ctx).Create(&pe).Error
	if err != nil && isDup(err) {
		err = c.db.WithContext(ctx).Model(&ProviderEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"process_error": msg}).Error
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "webhook failure audit write failed",
			"provider", pe.Provider, "event_id", pe.EventID, "err", err)
	}
}

func (c *Coordinator) sendConfirmation(ctx context.Context, o orders.Order, snap reviews.Snapshot) {
	if c.mail == nil {
		return
	}
	addr := snap.ShippingAddress
	if addr.Email == "" {
		return
	}
	name := addr.FirstName + " " + addr.LastName
	if err := c.mail.SendOrderConfirmation(addr.Email, name, o.OrderNumber, o.TotalCents, o.Currency); err != nil {
		c.logger.WarnContext(ctx, "order confirmation email failed", "order_id", o.ID, "err", err)
	}
}

func ensureFinancialEntry(ctx context.Context, tx *gorm.DB, e orders.FinancialEntry) error {
	var cnt int64
	if err := tx.WithContext(ctx).
		Model(&orders.FinancialEntry{}).
		Where("ref_type = ? AND ref_id = ? AND event = ?", e.RefType, e.RefID, e.Event).
		Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&e).Error
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
