package refunds

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/orders"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/payments"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/notify"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

// itemization must reconcile with the requested total within this many cents
const reconcileToleranceCents = 1

// DecisionSender sends the refund decision email. Best-effort like the
// order confirmation.
type DecisionSender interface {
	SendRefundDecision(to, orderNumber, status string, amountCents int, currency, reason string) error
}

type Service struct {
	db        *gorm.DB
	providers map[string]payments.Provider
	notifier  notify.Publisher
	mail      DecisionSender
	logger    *slog.Logger
}

func NewService(db *gorm.DB, notifier notify.Publisher, mail DecisionSender, logger *slog.Logger, providers ...payments.Provider) *Service {
	m := make(map[string]payments.Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Service{db: db, providers: m, notifier: notifier, mail: mail, logger: logger}
}

type CreateInput struct {
	OrderID           string
	RequestedByUserID string
	RequestedCents    int // 0 on a full refund means the remaining balance
	Type              string
	Lines             []Line
	ReasonCode        string
	Description       string
}

// Create opens a refund request against a paid order. The request starts
// in pending; money moves only after operator approval.
func (s *Service) Create(ctx context.Context, in CreateInput) (RefundRequest, error) {
	if in.OrderID == "" || in.RequestedByUserID == "" {
		return RefundRequest{}, apperr.InvalidErr("Order and requester are required.", nil)
	}
	if in.Type != TypeFull && in.Type != TypePartial {
		return RefundRequest{}, apperr.InvalidErr("Refund type must be full or partial.", map[string]string{"type": "must be full or partial"})
	}
	if in.ReasonCode == "" {
		return RefundRequest{}, apperr.InvalidErr("A reason code is required.", map[string]string{"reason_code": "required"})
	}

	var req RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ord orders.Order
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ord, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundErr("Order not found.")
			}
			return err
		}
		if ord.PaymentStatus != orders.PaymentPaid && ord.PaymentStatus != orders.PaymentPartiallyRefunded {
			return ErrOrderNotRefundable
		}

		remaining := ord.TotalCents - ord.RefundedCents
		if remaining <= 0 {
			return ErrOrderNotRefundable
		}

		amount := in.RequestedCents
		if in.Type == TypeFull && amount == 0 {
			amount = remaining
		}
		if amount <= 0 {
			return apperr.InvalidErr("Requested amount must be positive.", map[string]string{"requested_cents": "must be positive"})
		}
		if amount > remaining {
			return ErrAmountExceedsOrder
		}
		if in.Type == TypePartial {
			if len(in.Lines) == 0 {
				return apperr.InvalidErr("Partial refunds require an itemized breakdown.", map[string]string{"lines": "required for partial refunds"})
			}
			if err := reconcileLines(in.Lines, amount); err != nil {
				return err
			}
		}

		now := time.Now()
		req = RefundRequest{
			ID:                uuid.NewString(),
			OrderID:           ord.ID,
			Type:              in.Type,
			RequestedCents:    amount,
			OriginalCents:     ord.TotalCents,
			Currency:          ord.Currency,
			ReasonCode:        in.ReasonCode,
			Status:            StatusPending,
			RequestedByUserID: in.RequestedByUserID,
			CaptureReference:  ord.CaptureReference,
			RequestedAt:       now,
			UpdatedAt:         now,
		}
		if in.Description != "" {
			d := in.Description
			req.Description = &d
		}
		if len(in.Lines) > 0 {
			raw, err := json.Marshal(in.Lines)
			if err != nil {
				return err
			}
			req.LinesJSON = datatypes.JSON(raw)
		}
		return tx.WithContext(ctx).Create(&req).Error
	})
	if err != nil {
		return RefundRequest{}, err
	}

	s.publish(req)
	s.logger.InfoContext(ctx, "refund request created",
		"refund_id", req.ID, "order_id", req.OrderID, "type", req.Type, "amount_cents", req.RequestedCents)
	return req, nil
}

// Review moves a pending request under operator review.
func (s *Service) Review(ctx context.Context, refundID, adminNotes string) (RefundRequest, error) {
	req, err := s.transition(ctx, refundID, StatusUnderReview, func(r *RefundRequest, upd map[string]any) error {
		now := time.Now()
		upd["reviewed_at"] = &now
		if adminNotes != "" {
			upd["admin_notes"] = adminNotes
		}
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	s.publish(req)
	return req, nil
}

// Reject closes the request with a customer-visible reason.
func (s *Service) Reject(ctx context.Context, refundID, reason string) (RefundRequest, error) {
	if reason == "" {
		return RefundRequest{}, ErrReasonRequired
	}
	req, err := s.transition(ctx, refundID, StatusRejected, func(r *RefundRequest, upd map[string]any) error {
		upd["rejection_reason"] = reason
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	s.publish(req)
	s.sendDecision(ctx, req, reason)
	return req, nil
}

// Cancel withdraws a request that has not been approved yet.
func (s *Service) Cancel(ctx context.Context, refundID string) (RefundRequest, error) {
	req, err := s.transition(ctx, refundID, StatusCancelled, nil)
	if err != nil {
		return RefundRequest{}, err
	}
	s.publish(req)
	return req, nil
}

// SetCaptureReference records an operator-supplied capture reference for
// providers that refuse to refund without one.
func (s *Service) SetCaptureReference(ctx context.Context, refundID, ref string) (RefundRequest, error) {
	if ref == "" {
		return RefundRequest{}, apperr.InvalidErr("A capture reference is required.", map[string]string{"capture_reference": "required"})
	}
	var req RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRequest(ctx, tx, refundID)
		if err != nil {
			return err
		}
		if IsTerminal(r.Status) {
			return apperr.ConflictErr("Refund request is already closed.")
		}
		now := time.Now()
		if err := tx.WithContext(ctx).Model(&RefundRequest{}).
			Where("id = ?", r.ID).
			Updates(map[string]any{"capture_reference": ref, "updated_at": now}).Error; err != nil {
			return err
		}
		r.CaptureReference = &ref
		r.UpdatedAt = now
		req = r
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	return req, nil
}

type ApproveInput struct {
	RefundID    string
	ActorUserID string
}

// Approve executes the refund against the provider. A retried approve on an
// already-completed request is a no-op. A provider that requires a capture
// reference the system does not have sends the request back to under_review
// with payments.ErrManualReferenceRequired; the operator supplies one via
// SetCaptureReference and approves again. Other provider failures land in
// failed, recoverable via Retry.
func (s *Service) Approve(ctx context.Context, in ApproveInput) (RefundRequest, error) {
	// Phase-1: lock + approve
	var (
		req RefundRequest
		ord orders.Order
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRequest(ctx, tx, in.RefundID)
		if err != nil {
			return err
		}
		if r.Status == StatusCompleted {
			req = r
			return nil
		}
		if err := CanTransition(r.Status, StatusApproved); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ord, "id = ?", r.OrderID).Error; err != nil {
			return err
		}
		now := time.Now()
		if err := tx.WithContext(ctx).Model(&RefundRequest{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(map[string]any{"status": StatusApproved, "updated_at": now}).Error; err != nil {
			return err
		}
		r.Status = StatusApproved
		r.UpdatedAt = now
		req = r
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	if req.Status == StatusCompleted {
		s.logger.InfoContext(ctx, "approve on completed refund ignored", "refund_id", req.ID)
		return req, nil
	}

	return s.execute(ctx, req, ord, in.ActorUserID)
}

// Retry recovers a failed request back into approved and re-executes.
func (s *Service) Retry(ctx context.Context, in ApproveInput) (RefundRequest, error) {
	var (
		req RefundRequest
		ord orders.Order
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRequest(ctx, tx, in.RefundID)
		if err != nil {
			return err
		}
		if err := CanTransition(r.Status, StatusApproved); err != nil {
			return err
		}
		if r.Status != StatusFailed {
			return apperr.ConflictErr("Only failed refund requests can be retried.")
		}
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ord, "id = ?", r.OrderID).Error; err != nil {
			return err
		}
		now := time.Now()
		if err := tx.WithContext(ctx).Model(&RefundRequest{}).
			Where("id = ? AND status = ?", r.ID, StatusFailed).
			Updates(map[string]any{"status": StatusApproved, "last_process_error": nil, "updated_at": now}).Error; err != nil {
			return err
		}
		r.Status = StatusApproved
		r.UpdatedAt = now
		req = r
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	return s.execute(ctx, req, ord, in.ActorUserID)
}

// execute runs the provider call outside any transaction, then finalizes.
func (s *Service) execute(ctx context.Context, req RefundRequest, ord orders.Order, actorUserID string) (RefundRequest, error) {
	provider, ok := s.providers[ord.PaymentProvider]
	if !ok {
		return RefundRequest{}, payments.ErrUnknownProvider
	}

	captureRef := ""
	if req.CaptureReference != nil {
		captureRef = *req.CaptureReference
	}

	// Phase-2: provider call
	result, perr := provider.IssueRefund(ctx, payments.RefundCall{
		CaptureReference: captureRef,
		AmountCents:      req.RequestedCents,
		Currency:         req.Currency,
		Metadata:         map[string]string{payments.MetaOrderID: ord.ID},
	})

	if errors.Is(perr, payments.ErrManualReferenceRequired) {
		// first-class condition: back to the operator, not a failure
		if err := s.revertToUnderReview(ctx, req.ID); err != nil {
			return RefundRequest{}, err
		}
		s.logger.WarnContext(ctx, "refund needs manual capture reference",
			"refund_id", req.ID, "order_id", ord.ID, "provider", provider.Name())
		return RefundRequest{}, perr
	}

	// Phase-3: finalize
	if perr != nil || !result.Success {
		req2, err := s.markFailed(ctx, req, ord, actorUserID, perr)
		if err != nil {
			return RefundRequest{}, err
		}
		s.publish(req2)
		return req2, nil
	}

	req2, err := s.complete(ctx, req, ord, actorUserID, result.ProviderRefundID)
	if err != nil {
		return RefundRequest{}, err
	}
	s.publish(req2)
	s.sendDecision(ctx, req2, "")
	s.logger.InfoContext(ctx, "refund completed",
		"refund_id", req2.ID, "order_id", ord.ID, "amount_cents", req2.RequestedCents)
	return req2, nil
}

func (s *Service) revertToUnderReview(ctx context.Context, refundID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRequest(ctx, tx, refundID)
		if err != nil {
			return err
		}
		if err := CanTransition(r.Status, StatusUnderReview); err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&RefundRequest{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(map[string]any{"status": StatusUnderReview, "updated_at": time.Now()}).Error
	})
}

func (s *Service) markFailed(ctx context.Context, req RefundRequest, ord orders.Order, actorUserID string, perr error) (RefundRequest, error) {
	msg := "refund declined by provider"
	if perr != nil {
		msg = perr.Error()
	}
	if len(msg) > 250 {
		msg = msg[:250]
	}

	var out RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRequest(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if err := CanTransition(r.Status, StatusFailed); err != nil {
			return err
		}
		now := time.Now()
		if err := tx.WithContext(ctx).Model(&RefundRequest{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(map[string]any{"status": StatusFailed, "last_process_error": msg, "updated_at": now}).Error; err != nil {
			return err
		}

		fe := orders.FinancialEntry{
			ID:          uuid.NewString(),
			OrderID:     ord.ID,
			Event:       "refund_failed",
			AmountCents: 0,
			Currency:    ord.Currency,
			RefType:     "refund",
			RefID:       r.ID,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&fe).Error; err != nil {
			return err
		}

		note := "refund failed: " + msg
		ev := orders.OrderEvent{
			ID:          uuid.NewString(),
			OrderID:     ord.ID,
			ActorUserID: actorUserID,
			Action:      "refund",
			FromStatus:  ord.PaymentStatus,
			ToStatus:    ord.PaymentStatus,
			Note:        &note,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&ev).Error; err != nil {
			return err
		}

		r.Status = StatusFailed
		r.LastProcessError = &msg
		r.UpdatedAt = now
		out = r
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	s.logger.WarnContext(ctx, "refund failed", "refund_id", req.ID, "order_id", ord.ID, "err", msg)
	return out, nil
}

func (s *Service) complete(ctx context.Context, req RefundRequest, ord orders.Order, actorUserID, providerRefundID string) (RefundRequest, error) {
	var out RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRequest(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if r.Status == StatusCompleted {
			out = r
			return nil
		}
		if err := CanTransition(r.Status, StatusProcessing); err != nil {
			return err
		}
		if err := CanTransition(StatusProcessing, StatusCompleted); err != nil {
			return err
		}

		var o orders.Order
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", ord.ID).Error; err != nil {
			return err
		}

		now := time.Now()
		upd := map[string]any{
			"status":       StatusCompleted,
			"processed_at": &now,
			"completed_at": &now,
			"updated_at":   now,
		}
		if providerRefundID != "" {
			upd["provider_refund_id"] = providerRefundID
		}
		if err := tx.WithContext(ctx).Model(&RefundRequest{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(upd).Error; err != nil {
			return err
		}

		fe := orders.FinancialEntry{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			Event:       "refund_succeeded",
			AmountCents: -r.RequestedCents, // -out
			Currency:    o.Currency,
			RefType:     "refund",
			RefID:       r.ID,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&fe).Error; err != nil {
			return err
		}

		newRefunded := o.RefundedCents + r.RequestedCents
		newStatus := orders.PaymentPartiallyRefunded
		var refundedAt *time.Time
		if newRefunded >= o.TotalCents {
			newRefunded = o.TotalCents
			newStatus = orders.PaymentRefunded
			t := now
			refundedAt = &t
		}
		if err := tx.WithContext(ctx).Model(&orders.Order{}).
			Where("id = ?", o.ID).
			Updates(map[string]any{
				"refunded_cents": newRefunded,
				"payment_status": newStatus,
				"refunded_at":    refundedAt,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		note := "refund_id=" + r.ID
		ev := orders.OrderEvent{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ActorUserID: actorUserID,
			Action:      "refund",
			FromStatus:  o.PaymentStatus,
			ToStatus:    newStatus,
			Note:        &note,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&ev).Error; err != nil {
			return err
		}

		r.Status = StatusCompleted
		r.ProcessedAt = &now
		r.CompletedAt = &now
		r.UpdatedAt = now
		if providerRefundID != "" {
			r.ProviderRefundID = &providerRefundID
		}
		out = r
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	return out, nil
}

// transition is the shared lock-guard-update shape for the simple edges.
func (s *Service) transition(ctx context.Context, refundID, to string, mutate func(*RefundRequest, map[string]any) error) (RefundRequest, error) {
	var out RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRequest(ctx, tx, refundID)
		if err != nil {
			return err
		}
		if err := CanTransition(r.Status, to); err != nil {
			return err
		}
		upd := map[string]any{"status": to, "updated_at": time.Now()}
		if mutate != nil {
			if err := mutate(&r, upd); err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Model(&RefundRequest{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(upd).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).First(&r, "id = ?", r.ID).Error; err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return RefundRequest{}, err
	}
	return out, nil
}

func lockRequest(ctx context.Context, tx *gorm.DB, refundID string) (RefundRequest, error) {
	var r RefundRequest
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "id = ?", refundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RefundRequest{}, apperr.NotFoundErr("Refund request not found.")
		}
		return RefundRequest{}, err
	}
	return r, nil
}

// reconcileLines checks that the itemized breakdown adds up to the
// requested amount within rounding tolerance.
func reconcileLines(lines []Line, requestedCents int) error {
	sum := 0
	for i, l := range lines {
		if l.Quantity <= 0 {
			return apperr.InvalidErr("Refund line quantity must be positive.", map[string]string{"lines": "invalid quantity at index " + strconv.Itoa(i)})
		}
		sum += l.TotalCents()
	}
	diff := sum - requestedCents
	if diff < -reconcileToleranceCents || diff > reconcileToleranceCents {
		return apperr.InvalidErr("Itemized lines do not add up to the requested amount.", map[string]string{"lines": "sum does not reconcile with requested_cents"})
	}
	return nil
}

func (s *Service) publish(req RefundRequest) {
	s.notifier.Publish(notify.EventRefundStatusChanged, "order:"+req.OrderID, req.View())
}

func (s *Service) sendDecision(ctx context.Context, req RefundRequest, reason string) {
	if s.mail == nil {
		return
	}
	var ord orders.Order
	if err := s.db.WithContext(ctx).First(&ord, "id = ?", req.OrderID).Error; err != nil {
		return
	}
	addr := ord.Address()
	if addr.Email == "" {
		return
	}
	if err := s.mail.SendRefundDecision(addr.Email, ord.OrderNumber, req.Status, req.RequestedCents, req.Currency, reason); err != nil {
		s.logger.WarnContext(ctx, "refund decision email failed", "refund_id", req.ID, "err", err)
	}
}
