package reviews

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(event, subjectID string, payload any) {
	p.events = append(p.events, event)
}

func testService(t *testing.T) (*Service, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&OrderReview{}))

	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(db, pub, logger), db, pub
}

func submitInput(userID string) SubmitInput {
	return SubmitInput{
		UserID: userID,
		Items: []SubmitItemInput{
			{
				Name:           "Embroidered cap",
				Quantity:       2,
				BasePriceCents: 1500,
				Designs: []EmbroideryDesign{
					{Name: "logo", WidthIn: 3, HeightIn: 2, Notes: "front center"},
				},
			},
		},
		Address: Address{
			FirstName:  "Dana",
			LastName:   "Reyes",
			Email:      "dana@example.com",
			Address1:   "1 Main St",
			City:       "Austin",
			State:      "TX",
			PostalCode: "78701",
			Country:    "US",
		},
		ShippingMethod: "standard",
		Currency:       "USD",
	}
}

func TestSubmit_FreezesPricing(t *testing.T) {
	svc, db, pub := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, snap.Status)
	require.Len(t, snap.Items, 1)

	item := snap.Items[0]
	assert.NotEmpty(t, item.ID)
	// 3x2 material cost is 20 cents, no options
	assert.Equal(t, 20, item.Pricing.MaterialCents)
	assert.Equal(t, 0, item.Pricing.OptionsCents)
	assert.Equal(t, 1520, item.Pricing.UnitTotalCents)
	assert.Equal(t, 3040, item.Pricing.LineTotalCents)

	assert.Equal(t, 3040, snap.SubtotalCents)
	// standard: 599 + 50*2 units
	assert.Equal(t, 699, snap.ShippingCents)
	assert.Equal(t, snap.SubtotalCents+snap.ShippingCents+snap.TaxCents, snap.TotalCents)

	var stored OrderReview
	require.NoError(t, db.First(&stored, "id = ?", snap.ID).Error)
	assert.Equal(t, snap.TotalCents, stored.TotalCents)

	assert.Contains(t, pub.events, "design-review-updated")
}

func TestSubmit_TimestampsSurviveReload(t *testing.T) {
	svc, db, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)

	// Reload through the driver so the time columns are scanned, not
	// just echoed from the in-memory struct.
	var stored OrderReview
	require.NoError(t, db.First(&stored, "id = ?", snap.ID).Error)
	assert.False(t, stored.SubmittedAt.IsZero())
	assert.False(t, stored.UpdatedAt.IsZero())
	assert.Nil(t, stored.ConfirmedAt)
}

func TestSubmit_RequiresPlacementNotes(t *testing.T) {
	svc, _, _ := testService(t)

	in := submitInput("user-1")
	in.Items[0].Designs[0].Notes = ""

	_, err := svc.Submit(context.Background(), in)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)
	assert.Contains(t, ae.Fields, "items[0].designs[0].notes")
}

func TestSubmit_RequiresItems(t *testing.T) {
	svc, _, _ := testService(t)

	in := submitInput("user-1")
	in.Items = nil

	_, err := svc.Submit(context.Background(), in)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)
}

func TestUploadPictureReplies_ExactLineItemMatch(t *testing.T) {
	svc, _, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)
	itemID := snap.Items[0].ID

	// a prefix of the real id must not match
	_, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID[:8], ImageURL: "https://cdn.example.com/proof.png"}},
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)
	assert.Contains(t, ae.Fields, "replies[0].lineItemId")

	out, err := svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof.png", Note: "first proof"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsChanges, out.Status)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, itemID, out.Replies[0].LineItemID)
	assert.NotNil(t, out.PictureReplyUploadedAt)
}

func TestUploadPictureReplies_AppendsOnFurtherRounds(t *testing.T) {
	svc, _, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)
	itemID := snap.Items[0].ID

	for i := 0; i < 2; i++ {
		snap, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
			ReviewID: snap.ID,
			Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof.png"}},
		})
		require.NoError(t, err)
	}
	assert.Len(t, snap.Replies, 2)
	assert.Equal(t, StatusNeedsChanges, snap.Status)
}

func TestSubmitConfirmations_RejectionKeepsNeedsChanges(t *testing.T) {
	svc, _, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)
	itemID := snap.Items[0].ID

	_, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof.png"}},
	})
	require.NoError(t, err)

	out, err := svc.SubmitConfirmations(context.Background(), ActorCustomer, SubmitConfirmationsInput{
		ReviewID: snap.ID,
		UserID:   "user-1",
		Answers:  []ConfirmationInput{{LineItemID: itemID, Accepted: false, Note: "logo too small"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsChanges, out.Status)
	assert.Nil(t, out.ConfirmedAt)
	require.Len(t, out.Confirmations, 1)
	assert.False(t, out.Confirmations[0].Accepted)
}

func TestSubmitConfirmations_AllAcceptedAdvances(t *testing.T) {
	svc, _, pub := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)
	itemID := snap.Items[0].ID

	_, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof.png"}},
	})
	require.NoError(t, err)

	// reject first, then accept: the latest entry per item wins
	_, err = svc.SubmitConfirmations(context.Background(), ActorCustomer, SubmitConfirmationsInput{
		ReviewID: snap.ID,
		UserID:   "user-1",
		Answers:  []ConfirmationInput{{LineItemID: itemID, Accepted: false}},
	})
	require.NoError(t, err)

	// another proof round keeps it in needs-changes
	_, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof-v2.png"}},
	})
	require.NoError(t, err)

	out, err := svc.SubmitConfirmations(context.Background(), ActorCustomer, SubmitConfirmationsInput{
		ReviewID: snap.ID,
		UserID:   "user-1",
		Answers:  []ConfirmationInput{{LineItemID: itemID, Accepted: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, out.Status)
	assert.NotNil(t, out.ConfirmedAt)
	// the log keeps both answers
	assert.Len(t, out.Confirmations, 2)

	assert.Contains(t, pub.events, "customer-confirmation-received")
}

func TestSubmitConfirmations_WrongCustomerForbidden(t *testing.T) {
	svc, _, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)
	itemID := snap.Items[0].ID

	_, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof.png"}},
	})
	require.NoError(t, err)

	_, err = svc.SubmitConfirmations(context.Background(), ActorCustomer, SubmitConfirmationsInput{
		ReviewID: snap.ID,
		UserID:   "user-2",
		Answers:  []ConfirmationInput{{LineItemID: itemID, Accepted: true}},
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Forbidden, ae.Kind)
}

func TestSubmitConfirmations_UnrepliedItemRejected(t *testing.T) {
	svc, _, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)
	itemID := snap.Items[0].ID

	_, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof.png"}},
	})
	require.NoError(t, err)

	_, err = svc.SubmitConfirmations(context.Background(), ActorCustomer, SubmitConfirmationsInput{
		ReviewID: snap.ID,
		UserID:   "user-1",
		Answers:  []ConfirmationInput{{LineItemID: "no-such-item", Accepted: true}},
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)
	assert.Contains(t, ae.Fields, "confirmations[0].lineItemId")
}

func TestReject_RequiresReason(t *testing.T) {
	svc, _, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), ActorOperator, snap.ID, "")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)
}

func TestRejectAndReopen(t *testing.T) {
	svc, _, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)

	out, err := svc.Reject(context.Background(), ActorOperator, snap.ID, "artwork unusable at this size")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	require.NotNil(t, out.RejectReason)
	assert.Equal(t, "artwork unusable at this size", *out.RejectReason)

	// customers cannot reopen
	_, err = svc.Reopen(context.Background(), ActorCustomer, snap.ID)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Forbidden, ae.Kind)

	out, err = svc.Reopen(context.Background(), ActorOperator, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, out.Status)
}

func TestMarkPaidTx(t *testing.T) {
	svc, db, _ := testService(t)

	snap, err := svc.Submit(context.Background(), submitInput("user-1"))
	require.NoError(t, err)

	// not yet awaiting payment
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.MarkPaidTx(context.Background(), tx, snap.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrNotAwaitingPayment)

	itemID := snap.Items[0].ID
	_, err = svc.UploadPictureReplies(context.Background(), ActorOperator, UploadRepliesInput{
		ReviewID: snap.ID,
		Replies:  []ReplyInput{{LineItemID: itemID, ImageURL: "https://cdn.example.com/proof.png"}},
	})
	require.NoError(t, err)
	_, err = svc.SubmitConfirmations(context.Background(), ActorCustomer, SubmitConfirmationsInput{
		ReviewID: snap.ID,
		UserID:   "user-1",
		Answers:  []ConfirmationInput{{LineItemID: itemID, Accepted: true}},
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		r, err := svc.MarkPaidTx(context.Background(), tx, snap.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, StatusApprovedProcessing, r.Status)
		return nil
	})
	require.NoError(t, err)
}
