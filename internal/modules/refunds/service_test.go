package refunds

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/orders"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/payments"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/notify"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

// fakeProvider is a programmable payment provider for refund execution.
type fakeProvider struct {
	name   string
	issue  func(payments.RefundCall) (payments.RefundResult, error)
	issued int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreateCheckoutSession(context.Context, payments.CheckoutSessionRequest) (payments.CheckoutSessionResponse, error) {
	return payments.CheckoutSessionResponse{}, nil
}

func (f *fakeProvider) CaptureOrder(context.Context, payments.CaptureRequest) (payments.CaptureResponse, error) {
	return payments.CaptureResponse{Success: true}, nil
}

func (f *fakeProvider) IssueRefund(_ context.Context, call payments.RefundCall) (payments.RefundResult, error) {
	f.issued++
	if f.issue != nil {
		return f.issue(call)
	}
	return payments.RefundResult{Success: true, ProviderRefundID: "re_" + uuid.NewString()}, nil
}

func (f *fakeProvider) VerifyAndParseWebhook(http.Header, []byte) (payments.WebhookEvent, error) {
	return payments.WebhookEvent{}, errors.New("not a webhook provider")
}

func refundDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orders.Order{},
		&orders.OrderEvent{},
		&orders.FinancialEntry{},
		&RefundRequest{},
	))
	return db
}

func seedPaidOrder(t *testing.T, db *gorm.DB, totalCents int, captureRef string) orders.Order {
	t.Helper()

	addrJSON, err := json.Marshal(reviews.Address{
		FirstName: "Dana", LastName: "Reyes", Email: "dana@example.com",
		Address1: "1 Main St", City: "Austin", PostalCode: "78701", Country: "US",
	})
	require.NoError(t, err)

	now := time.Now()
	o := orders.Order{
		ID:                uuid.NewString(),
		OrderNumber:       "MC-20260830-000042",
		OrderReviewID:     42,
		UserID:            "user-1",
		ItemsJSON:         datatypes.JSON([]byte(`[]`)),
		ShippingAddress:   datatypes.JSON(addrJSON),
		SubtotalCents:     totalCents - 950,
		ShippingCents:     699,
		TaxCents:          251,
		TotalCents:        totalCents,
		Currency:          "USD",
		PaymentStatus:     orders.PaymentPaid,
		FulfillmentStatus: orders.FulfillmentProcessing,
		PaymentProvider:   "fake",
		PaidAt:            now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if captureRef != "" {
		o.CaptureReference = &captureRef
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func refundService(db *gorm.DB, p *fakeProvider) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(db, notify.Noop{}, nil, logger, p)
}

func TestCreate_FullDefaultsToRemainingBalance(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	req, err := svc.Create(context.Background(), CreateInput{
		OrderID:           ord.ID,
		RequestedByUserID: "user-1",
		Type:              TypeFull,
		ReasonCode:        "defective",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 3990, req.RequestedCents)
	assert.Equal(t, 3990, req.OriginalCents)
	require.NotNil(t, req.CaptureReference)
	assert.Equal(t, "cap_1", *req.CaptureReference)
}

func TestCreate_AmountExceedsRemaining(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	_, err := svc.Create(context.Background(), CreateInput{
		OrderID:           ord.ID,
		RequestedByUserID: "user-1",
		Type:              TypePartial,
		RequestedCents:    4000,
		Lines:             []Line{{LineItemID: "li-1", Name: "cap", Quantity: 1, UnitCents: 4000}},
		ReasonCode:        "defective",
	})
	assert.ErrorIs(t, err, ErrAmountExceedsOrder)
}

func TestCreate_UnpaidOrderNotRefundable(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")
	require.NoError(t, db.Model(&orders.Order{}).Where("id = ?", ord.ID).Update("payment_status", orders.PaymentRefunded).Error)

	_, err := svc.Create(context.Background(), CreateInput{
		OrderID:           ord.ID,
		RequestedByUserID: "user-1",
		Type:              TypeFull,
		ReasonCode:        "defective",
	})
	assert.ErrorIs(t, err, ErrOrderNotRefundable)
}

func TestCreate_PartialLineReconciliation(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	base := CreateInput{
		OrderID:           ord.ID,
		RequestedByUserID: "user-1",
		Type:              TypePartial,
		ReasonCode:        "wrong size",
	}

	t.Run("lines required", func(t *testing.T) {
		in := base
		in.RequestedCents = 1000
		_, err := svc.Create(context.Background(), in)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.Invalid, ae.Kind)
	})

	t.Run("sum off by more than a cent", func(t *testing.T) {
		in := base
		in.RequestedCents = 1000
		in.Lines = []Line{{LineItemID: "li-1", Name: "cap", Quantity: 1, UnitCents: 900}}
		_, err := svc.Create(context.Background(), in)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.Invalid, ae.Kind)
	})

	t.Run("one cent rounding tolerated", func(t *testing.T) {
		in := base
		in.RequestedCents = 1001
		in.Lines = []Line{{LineItemID: "li-1", Name: "cap", Quantity: 2, UnitCents: 500}}
		req, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 1001, req.RequestedCents)
		require.Len(t, req.Lines(), 1)
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		in := base
		in.RequestedCents = 1000
		in.Lines = []Line{{LineItemID: "li-1", Name: "cap", Quantity: 0, UnitCents: 1000}}
		_, err := svc.Create(context.Background(), in)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.Invalid, ae.Kind)
	})
}

func createPendingRefund(t *testing.T, svc *Service, orderID string, cents int) RefundRequest {
	t.Helper()
	req, err := svc.Create(context.Background(), CreateInput{
		OrderID:           orderID,
		RequestedByUserID: "user-1",
		Type:              TypePartial,
		RequestedCents:    cents,
		Lines:             []Line{{LineItemID: "li-1", Name: "cap", Quantity: 1, UnitCents: cents}},
		ReasonCode:        "defective",
	})
	require.NoError(t, err)
	return req
}

func TestApprove_CompletesAndUpdatesOrder(t *testing.T) {
	db := refundDB(t)
	p := &fakeProvider{name: "fake"}
	svc := refundService(db, p)
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	req := createPendingRefund(t, svc, ord.ID, 1000)

	_, err := svc.Review(context.Background(), req.ID, "verified with photos")
	require.NoError(t, err)

	out, err := svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.NotNil(t, out.ProcessedAt)
	assert.NotNil(t, out.CompletedAt)
	assert.NotNil(t, out.ProviderRefundID)
	assert.Equal(t, 1, p.issued)

	var o orders.Order
	require.NoError(t, db.First(&o, "id = ?", ord.ID).Error)
	assert.Equal(t, 1000, o.RefundedCents)
	assert.Equal(t, orders.PaymentPartiallyRefunded, o.PaymentStatus)
	assert.Nil(t, o.RefundedAt)

	var entries []orders.FinancialEntry
	require.NoError(t, db.Find(&entries, "ref_type = ? AND ref_id = ?", "refund", req.ID).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "refund_succeeded", entries[0].Event)
	assert.Equal(t, -1000, entries[0].AmountCents)
}

func TestApprove_FullRefundMarksOrderRefunded(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	req, err := svc.Create(context.Background(), CreateInput{
		OrderID:           ord.ID,
		RequestedByUserID: "user-1",
		Type:              TypeFull,
		ReasonCode:        "cancelled",
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), req.ID, "")
	require.NoError(t, err)
	out, err := svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)

	var o orders.Order
	require.NoError(t, db.First(&o, "id = ?", ord.ID).Error)
	assert.Equal(t, o.TotalCents, o.RefundedCents)
	assert.Equal(t, orders.PaymentRefunded, o.PaymentStatus)
	assert.NotNil(t, o.RefundedAt)
}

func TestApprove_FromPendingConflicts(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")
	req := createPendingRefund(t, svc, ord.ID, 1000)

	_, err := svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, ae.Kind)
}

func TestApprove_ManualReferenceRoundTrip(t *testing.T) {
	db := refundDB(t)
	p := &fakeProvider{name: "fake"}
	p.issue = func(call payments.RefundCall) (payments.RefundResult, error) {
		if call.CaptureReference == "" {
			return payments.RefundResult{}, payments.ErrManualReferenceRequired
		}
		return payments.RefundResult{Success: true, ProviderRefundID: "re_manual"}, nil
	}
	svc := refundService(db, p)
	ord := seedPaidOrder(t, db, 3990, "") // order captured without a stored reference

	req := createPendingRefund(t, svc, ord.ID, 1000)
	_, err := svc.Review(context.Background(), req.ID, "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	assert.ErrorIs(t, err, payments.ErrManualReferenceRequired)

	var stored RefundRequest
	require.NoError(t, db.First(&stored, "id = ?", req.ID).Error)
	assert.Equal(t, StatusUnderReview, stored.Status)

	_, err = svc.SetCaptureReference(context.Background(), req.ID, "cap_manual")
	require.NoError(t, err)

	out, err := svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	require.NotNil(t, out.ProviderRefundID)
	assert.Equal(t, "re_manual", *out.ProviderRefundID)
	assert.Equal(t, 2, p.issued)
}

func TestApprove_ProviderFailureThenRetry(t *testing.T) {
	db := refundDB(t)
	p := &fakeProvider{name: "fake"}
	fail := true
	p.issue = func(payments.RefundCall) (payments.RefundResult, error) {
		if fail {
			return payments.RefundResult{}, errors.New("provider timeout")
		}
		return payments.RefundResult{Success: true, ProviderRefundID: "re_retry"}, nil
	}
	svc := refundService(db, p)
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	req := createPendingRefund(t, svc, ord.ID, 1000)
	_, err := svc.Review(context.Background(), req.ID, "")
	require.NoError(t, err)

	out, err := svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	require.NotNil(t, out.LastProcessError)
	assert.Contains(t, *out.LastProcessError, "provider timeout")

	// the order's money state is untouched by a failed attempt
	var o orders.Order
	require.NoError(t, db.First(&o, "id = ?", ord.ID).Error)
	assert.Zero(t, o.RefundedCents)
	assert.Equal(t, orders.PaymentPaid, o.PaymentStatus)

	// retry is only valid from failed
	fail = false
	out, err = svc.Retry(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Nil(t, out.LastProcessError)

	_, err = svc.Retry(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, ae.Kind)
}

func TestApprove_OnCompletedIsNoOp(t *testing.T) {
	db := refundDB(t)
	p := &fakeProvider{name: "fake"}
	svc := refundService(db, p)
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	req := createPendingRefund(t, svc, ord.ID, 1000)
	_, err := svc.Review(context.Background(), req.ID, "")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)

	out, err := svc.Approve(context.Background(), ApproveInput{RefundID: req.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 1, p.issued, "no second provider call")

	var o orders.Order
	require.NoError(t, db.First(&o, "id = ?", ord.ID).Error)
	assert.Equal(t, 1000, o.RefundedCents, "money moved once")
}

func TestReject_RequiresReason(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")
	req := createPendingRefund(t, svc, ord.ID, 1000)

	_, err := svc.Reject(context.Background(), req.ID, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	out, err := svc.Reject(context.Background(), req.ID, "outside the return window")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	require.NotNil(t, out.RejectionReason)
	assert.Equal(t, "outside the return window", *out.RejectionReason)
}

func TestCancel_OnlyBeforeApproval(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	req := createPendingRefund(t, svc, ord.ID, 1000)
	out, err := svc.Cancel(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)

	// cancelled is terminal
	_, err = svc.Review(context.Background(), req.ID, "")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, ae.Kind)
}

func TestSetCaptureReference_RejectedOnClosedRequest(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 3990, "cap_1")

	req := createPendingRefund(t, svc, ord.ID, 1000)
	_, err := svc.Cancel(context.Background(), req.ID)
	require.NoError(t, err)

	_, err = svc.SetCaptureReference(context.Background(), req.ID, "cap_late")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, ae.Kind)
}

func TestSecondPartialRefundExhaustsOrder(t *testing.T) {
	db := refundDB(t)
	svc := refundService(db, &fakeProvider{name: "fake"})
	ord := seedPaidOrder(t, db, 2000, "cap_1")

	first := createPendingRefund(t, svc, ord.ID, 1500)
	_, err := svc.Review(context.Background(), first.ID, "")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), ApproveInput{RefundID: first.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)

	// a second request may only claim what remains
	_, err = svc.Create(context.Background(), CreateInput{
		OrderID:           ord.ID,
		RequestedByUserID: "user-1",
		Type:              TypePartial,
		RequestedCents:    600,
		Lines:             []Line{{LineItemID: "li-1", Name: "cap", Quantity: 1, UnitCents: 600}},
		ReasonCode:        "defective",
	})
	assert.ErrorIs(t, err, ErrAmountExceedsOrder)

	second := createPendingRefund(t, svc, ord.ID, 500)
	_, err = svc.Review(context.Background(), second.ID, "")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), ApproveInput{RefundID: second.ID, ActorUserID: "admin-1"})
	require.NoError(t, err)

	var o orders.Order
	require.NoError(t, db.First(&o, "id = ?", ord.ID).Error)
	assert.Equal(t, 2000, o.RefundedCents)
	assert.Equal(t, orders.PaymentRefunded, o.PaymentStatus)
}
