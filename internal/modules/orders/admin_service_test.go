package orders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/notify"
)

func adminDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Order{}, &OrderEvent{}))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, fulfillment string) Order {
	t.Helper()
	now := time.Now()
	o := Order{
		ID:                uuid.NewString(),
		OrderNumber:       Number(7, now),
		OrderReviewID:     7,
		UserID:            "user-1",
		ItemsJSON:         datatypes.JSON([]byte(`[]`)),
		ShippingAddress:   datatypes.JSON([]byte(`{}`)),
		TotalCents:        3990,
		Currency:          "USD",
		PaymentStatus:     PaymentPaid,
		FulfillmentStatus: fulfillment,
		PaymentProvider:   "cardpay",
		PaidAt:            now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func TestTransition_ShipThenDeliver(t *testing.T) {
	db := adminDB(t)
	svc := NewAdminService(db, notify.Noop{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	o := seedOrder(t, db, FulfillmentProcessing)

	require.NoError(t, svc.Transition(context.Background(), TransitionInput{
		OrderID:         o.ID,
		ActorUserID:     "admin-1",
		Action:          "ship",
		TrackingCarrier: "usps",
		TrackingNumber:  "9400 1000 0000 0000 0000 00",
	}))

	var shipped Order
	require.NoError(t, db.First(&shipped, "id = ?", o.ID).Error)
	assert.Equal(t, FulfillmentShipped, shipped.FulfillmentStatus)
	assert.NotNil(t, shipped.ShippedAt)
	require.NotNil(t, shipped.TrackingCarrier)
	assert.Equal(t, "usps", *shipped.TrackingCarrier)

	require.NoError(t, svc.Transition(context.Background(), TransitionInput{
		OrderID:     o.ID,
		ActorUserID: "admin-1",
		Action:      "deliver",
	}))

	var delivered Order
	require.NoError(t, db.First(&delivered, "id = ?", o.ID).Error)
	assert.Equal(t, FulfillmentDelivered, delivered.FulfillmentStatus)
	assert.NotNil(t, delivered.DeliveredAt)

	var events []OrderEvent
	require.NoError(t, db.Order("created_at").Find(&events, "order_id = ?", o.ID).Error)
	require.Len(t, events, 2)
	assert.Equal(t, "ship", events[0].Action)
	assert.Equal(t, "deliver", events[1].Action)
	assert.Equal(t, FulfillmentProcessing, events[0].FromStatus)
	assert.Equal(t, FulfillmentShipped, events[0].ToStatus)
}

func TestTransition_InvalidAction(t *testing.T) {
	db := adminDB(t)
	svc := NewAdminService(db, notify.Noop{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	o := seedOrder(t, db, FulfillmentProcessing)

	// deliver before ship
	err := svc.Transition(context.Background(), TransitionInput{OrderID: o.ID, ActorUserID: "admin-1", Action: "deliver"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = svc.Transition(context.Background(), TransitionInput{OrderID: o.ID, ActorUserID: "admin-1", Action: "vaporize"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// double ship
	require.NoError(t, svc.Transition(context.Background(), TransitionInput{OrderID: o.ID, ActorUserID: "admin-1", Action: "ship"}))
	err = svc.Transition(context.Background(), TransitionInput{OrderID: o.ID, ActorUserID: "admin-1", Action: "ship"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
