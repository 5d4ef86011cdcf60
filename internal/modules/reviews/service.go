package reviews

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/pricing"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/shipping"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/notify"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

// taxRateBps: flat sales tax in basis points applied on the subtotal.
const taxRateBps = 825

type Service struct {
	db       *gorm.DB
	catalog  pricing.Catalog
	notifier notify.Publisher
	logger   *slog.Logger
}

func NewService(db *gorm.DB, notifier notify.Publisher, logger *slog.Logger) *Service {
	return &Service{db: db, catalog: pricing.DefaultCatalog, notifier: notifier, logger: logger}
}

// SetCatalog overrides the material catalog (used by tests and seasonal
// price changes).
func (s *Service) SetCatalog(c pricing.Catalog) { s.catalog = c }

type SubmitItemInput struct {
	ProductID      *string
	Name           string
	Quantity       int
	BasePriceCents int
	Designs        []EmbroideryDesign
}

type SubmitInput struct {
	UserID         string
	Items          []SubmitItemInput
	Address        Address
	ShippingMethod string
	Currency       string
	CustomerNotes  string
}

// Submit creates a new review in pending state. Pricing is computed once
// here and frozen onto each line item.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Snapshot, error) {
	if len(in.Items) == 0 {
		return Snapshot{}, apperr.InvalidErr("Your submission has no items.", map[string]string{"items": "at least one item is required"})
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	items := make([]LineItem, 0, len(in.Items))
	parcels := make([]shipping.Parcel, 0, len(in.Items))
	subtotal := 0

	for i, it := range in.Items {
		idx := strconv.Itoa(i)
		if it.Quantity < 1 {
			return Snapshot{}, apperr.InvalidErr("Invalid item quantity.", map[string]string{"items[" + idx + "].quantity": "must be at least 1"})
		}
		if it.ProductID == nil && len(it.Designs) == 0 {
			return Snapshot{}, apperr.InvalidErr("Item needs a product or a custom design.", map[string]string{"items[" + idx + "]": "product reference or embroidery design required"})
		}

		designs := make([]EmbroideryDesign, len(it.Designs))
		inputs := make([]pricing.DesignInput, len(it.Designs))
		for j, d := range it.Designs {
			if d.Notes == "" {
				return Snapshot{}, apperr.InvalidErr("Placement notes are required for every design.", map[string]string{
					"items[" + idx + "].designs[" + strconv.Itoa(j) + "].notes": "required before submission",
				})
			}
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			if d.Scale == 0 {
				d.Scale = 1
			}
			designs[j] = d
			inputs[j] = pricing.DesignInput{
				WidthIn:  d.WidthIn,
				HeightIn: d.HeightIn,
				Options:  toPricingOptions(d.SelectedOptions()),
			}
			parcels = append(parcels, shipping.Parcel{Quantity: it.Quantity, WidthIn: d.WidthIn, HeightIn: d.HeightIn})
		}
		if len(it.Designs) == 0 {
			parcels = append(parcels, shipping.Parcel{Quantity: it.Quantity})
		}

		quote, err := s.catalog.QuoteDesigns(inputs)
		if err != nil {
			return Snapshot{}, err
		}

		materialCents := centsOf(quote.MaterialTotal)
		optionsCents := centsOf(quote.OptionsTotal)
		unitTotal := it.BasePriceCents + materialCents + optionsCents

		items = append(items, LineItem{
			ID:        uuid.NewString(),
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Designs:   designs,
			Pricing: PricingBreakdown{
				BasePriceCents: it.BasePriceCents,
				MaterialCents:  materialCents,
				OptionsCents:   optionsCents,
				UnitTotalCents: unitTotal,
				LineTotalCents: unitTotal * it.Quantity,
			},
		})
		subtotal += unitTotal * it.Quantity
	}

	ship, err := shipping.Rate(in.ShippingMethod, in.Address.Country, parcels)
	if err != nil {
		return Snapshot{}, err
	}
	tax := (subtotal*taxRateBps + 5000) / 10000

	orderData, err := json.Marshal(items)
	if err != nil {
		return Snapshot{}, err
	}
	addr, err := json.Marshal(in.Address)
	if err != nil {
		return Snapshot{}, err
	}

	now := time.Now()
	review := OrderReview{
		UserID:          in.UserID,
		OrderData:       orderData,
		ShippingAddress: addr,
		SubtotalCents:   subtotal,
		ShippingCents:   ship.PriceCents,
		TaxCents:        tax,
		TotalCents:      subtotal + ship.PriceCents + tax,
		Currency:        currency,
		ShippingMethod:  in.ShippingMethod,
		Status:          StatusPending,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
	if in.CustomerNotes != "" {
		n := in.CustomerNotes
		review.CustomerNotes = &n
	}

	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		return Snapshot{}, err
	}

	snap := review.Snapshot()
	s.notifier.Publish(notify.EventDesignReviewUpdated, reviewSubject(review.ID), snap)
	s.logger.InfoContext(ctx, "design review submitted", "review_id", review.ID, "user_id", in.UserID, "total_cents", review.TotalCents)
	return snap, nil
}

// Get loads a review by id.
func (s *Service) Get(ctx context.Context, id uint64) (Snapshot, error) {
	var r OrderReview
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return Snapshot{}, err
	}
	return r.Snapshot(), nil
}

type ReplyInput struct {
	LineItemID string
	ImageURL   string
	Note       string
}

type UploadRepliesInput struct {
	ReviewID uint64
	Replies  []ReplyInput
}

// UploadPictureReplies appends operator proofs and moves the review to
// needs-changes. Each reply must reference an existing line item by exact
// id; there is no prefix fallback.
func (s *Service) UploadPictureReplies(ctx context.Context, actor Actor, in UploadRepliesInput) (Snapshot, error) {
	if len(in.Replies) == 0 {
		return Snapshot{}, apperr.InvalidErr("At least one picture reply is required.", nil)
	}

	var snap Snapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r OrderReview
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&r, "id = ?", in.ReviewID).Error; err != nil {
			return err
		}

		if err := CanTransition(r.Status, StatusNeedsChanges, actor); err != nil {
			return err
		}

		known := map[string]bool{}
		for _, it := range r.Items() {
			known[it.ID] = true
		}

		now := time.Now()
		replies := r.Replies()
		for i, rep := range in.Replies {
			if !known[rep.LineItemID] {
				return apperr.InvalidErr("Picture reply references an unknown line item.", map[string]string{
					"replies[" + strconv.Itoa(i) + "].lineItemId": "no such line item on this review",
				})
			}
			replies = append(replies, PictureReply{
				ID:         uuid.NewString(),
				LineItemID: rep.LineItemID,
				ImageURL:   rep.ImageURL,
				Note:       rep.Note,
				UploadedAt: now,
			})
		}

		blob, err := json.Marshal(replies)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"admin_picture_replies":     blob,
			"status":                    StatusNeedsChanges,
			"picture_reply_uploaded_at": now,
			"updated_at":                now,
		}
		if r.ReviewedAt == nil {
			updates["reviewed_at"] = now
		}
		if err := tx.WithContext(ctx).Model(&OrderReview{}).
			Where("id = ?", r.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).First(&r, "id = ?", r.ID).Error; err != nil {
			return err
		}
		snap = r.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	s.notifier.Publish(notify.EventPictureReplyUploaded, reviewSubject(in.ReviewID), snap)
	s.logger.InfoContext(ctx, "picture replies uploaded", "review_id", in.ReviewID, "count", len(in.Replies))
	return snap, nil
}

type ConfirmationInput struct {
	LineItemID string
	Accepted   bool
	Note       string
}

type SubmitConfirmationsInput struct {
	ReviewID uint64
	UserID   string
	Answers  []ConfirmationInput
}

// SubmitConfirmations appends customer answers to the confirmation log.
// When every replied-to line item has a latest confirmation and all of
// them are accepted, the review advances to pending-payment automatically.
// Any rejection keeps it in needs-changes for another proof round.
func (s *Service) SubmitConfirmations(ctx context.Context, actor Actor, in SubmitConfirmationsInput) (Snapshot, error) {
	if len(in.Answers) == 0 {
		return Snapshot{}, apperr.InvalidErr("No confirmations were provided.", nil)
	}

	var snap Snapshot
	advanced := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r OrderReview
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&r, "id = ?", in.ReviewID).Error; err != nil {
			return err
		}

		if r.UserID != in.UserID {
			return apperr.ForbiddenErr("This design review belongs to another customer.")
		}
		if r.Status != StatusNeedsChanges {
			return apperr.ConflictErr("This design review is not awaiting your confirmation.")
		}

		replies := r.Replies()
		replied := map[string]bool{}
		for _, rep := range replies {
			replied[rep.LineItemID] = true
		}

		now := time.Now()
		confs := r.Confirmations()
		for i, a := range in.Answers {
			if !replied[a.LineItemID] {
				return apperr.InvalidErr("Confirmation references a line item with no picture reply.", map[string]string{
					"confirmations[" + strconv.Itoa(i) + "].lineItemId": "no picture reply exists for this line item",
				})
			}
			confs = append(confs, Confirmation{
				LineItemID:  a.LineItemID,
				Accepted:    a.Accepted,
				Note:        a.Note,
				ConfirmedAt: now,
			})
		}

		blob, err := json.Marshal(confs)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"customer_confirmations": blob,
			"updated_at":             now,
		}

		// advance only when every replied-to item is currently accepted
		latest := LatestConfirmations(confs)
		complete := true
		allAccepted := true
		for itemID := range replied {
			c, ok := latest[itemID]
			if !ok {
				complete = false
				break
			}
			if !c.Accepted {
				allAccepted = false
			}
		}

		if complete && allAccepted {
			if err := CanTransition(r.Status, StatusPendingPayment, actor); err != nil {
				return err
			}
			updates["status"] = StatusPendingPayment
			updates["confirmed_at"] = now
			advanced = true
		}

		if err := tx.WithContext(ctx).Model(&OrderReview{}).
			Where("id = ?", r.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).First(&r, "id = ?", r.ID).Error; err != nil {
			return err
		}
		snap = r.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	s.notifier.Publish(notify.EventCustomerConfirmationReceived, reviewSubject(in.ReviewID), snap)
	if advanced {
		s.notifier.Publish(notify.EventDesignReviewUpdated, reviewSubject(in.ReviewID), snap)
	}
	s.logger.InfoContext(ctx, "customer confirmations received", "review_id", in.ReviewID, "advanced", advanced)
	return snap, nil
}

// Reject moves a review to rejected with a required reason. Rejected
// reviews stay queryable forever; resubmission creates a new review.
func (s *Service) Reject(ctx context.Context, actor Actor, reviewID uint64, reason string) (Snapshot, error) {
	if reason == "" {
		return Snapshot{}, apperr.InvalidErr("A rejection reason is required.", map[string]string{"reason": "required"})
	}

	var snap Snapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r OrderReview
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&r, "id = ?", reviewID).Error; err != nil {
			return err
		}
		if err := CanTransition(r.Status, StatusRejected, actor); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.WithContext(ctx).Model(&OrderReview{}).
			Where("id = ? AND status = ?", r.ID, r.Status). // optimistic guard
			Updates(map[string]any{
				"status":        StatusRejected,
				"reject_reason": reason,
				"reviewed_at":   now,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).First(&r, "id = ?", r.ID).Error; err != nil {
			return err
		}
		snap = r.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	s.notifier.Publish(notify.EventDesignReviewUpdated, reviewSubject(reviewID), snap)
	s.logger.InfoContext(ctx, "design review rejected", "review_id", reviewID)
	return snap, nil
}

// Reopen moves a rejected review back to pending after the customer
// re-uploads artwork out of band.
func (s *Service) Reopen(ctx context.Context, actor Actor, reviewID uint64) (Snapshot, error) {
	var snap Snapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r OrderReview
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&r, "id = ?", reviewID).Error; err != nil {
			return err
		}
		if err := CanTransition(r.Status, StatusPending, actor); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.WithContext(ctx).Model(&OrderReview{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(map[string]any{
				"status":     StatusPending,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		if err := tx.WithContext(ctx).First(&r, "id = ?", r.ID).Error; err != nil {
			return err
		}
		snap = r.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	s.notifier.Publish(notify.EventDesignReviewUpdated, reviewSubject(reviewID), snap)
	return snap, nil
}

// MarkPaidTx performs the single system-driven transition inside the
// caller's transaction. Only the payment coordinator calls this.
func (s *Service) MarkPaidTx(ctx context.Context, tx *gorm.DB, reviewID uint64) (OrderReview, error) {
	var r OrderReview
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "id = ?", reviewID).Error; err != nil {
		return OrderReview{}, err
	}
	if r.Status != StatusPendingPayment {
		return r, ErrNotAwaitingPayment
	}
	if err := CanTransition(r.Status, StatusApprovedProcessing, ActorSystem); err != nil {
		return r, err
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&OrderReview{}).
		Where("id = ? AND status = ?", r.ID, StatusPendingPayment).
		Updates(map[string]any{
			"status":     StatusApprovedProcessing,
			"updated_at": now,
		}).Error; err != nil {
		return OrderReview{}, err
	}
	r.Status = StatusApprovedProcessing
	r.UpdatedAt = now
	return r, nil
}

// PublishUpdated re-broadcasts a review snapshot. The payment coordinator
// uses it after its transaction commits.
func (s *Service) PublishUpdated(snap Snapshot) {
	s.notifier.Publish(notify.EventDesignReviewUpdated, reviewSubject(snap.ID), snap)
}

func reviewSubject(id uint64) string { return "review:" + strconv.FormatUint(id, 10) }

func toPricingOptions(opts []StyleOption) []pricing.Option {
	out := make([]pricing.Option, len(opts))
	for i, o := range opts {
		out[i] = pricing.Option{Name: o.Name, Price: o.Price}
	}
	return out
}

func centsOf(d decimal.Decimal) int {
	return int(d.Shift(2).Round(0).IntPart())
}
