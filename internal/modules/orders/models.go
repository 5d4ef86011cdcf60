package orders

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
)

const (
	PaymentPaid              = "paid"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentRefunded          = "refunded"
)

const (
	FulfillmentProcessing = "processing"
	FulfillmentShipped    = "shipped"
	FulfillmentDelivered  = "delivered"
)

// Order is created exactly once per review, by the payment coordinator,
// atomically with capture confirmation. Items and address are snapshots of
// the review at materialization time; review mutations never reach them.
// The unique index on OrderReviewID is the materialize-once guarantee.
type Order struct {
	ID            string `gorm:"type:char(36);primaryKey"`
	OrderNumber   string `gorm:"type:varchar(64);not null;uniqueIndex:ux_orders_order_number"`
	OrderReviewID uint64 `gorm:"not null;uniqueIndex:ux_orders_order_review_id"`
	UserID        string `gorm:"type:char(36);not null;index:ix_orders_user_id"`

	ItemsJSON       datatypes.JSON `gorm:"type:json;not null"`
	ShippingAddress datatypes.JSON `gorm:"type:json;not null"`

	SubtotalCents int    `gorm:"not null"`
	ShippingCents int    `gorm:"not null"`
	TaxCents      int    `gorm:"not null"`
	TotalCents    int    `gorm:"not null"`
	RefundedCents int    `gorm:"not null;default:0"`
	Currency      string `gorm:"type:char(3);not null"`

	PaymentStatus     string `gorm:"type:varchar(32);not null"`
	FulfillmentStatus string `gorm:"type:varchar(32);not null"`

	PaymentProvider  string  `gorm:"type:varchar(64);not null"`
	CaptureReference *string `gorm:"type:varchar(128)"`
	TransactionID    *string `gorm:"type:varchar(128)"`

	TrackingCarrier *string `gorm:"type:varchar(64)"`
	TrackingNumber  *string `gorm:"type:varchar(128)"`

	PaidAt      time.Time  `gorm:"precision:3;not null"`
	ShippedAt   *time.Time `gorm:"precision:3"`
	DeliveredAt *time.Time `gorm:"precision:3"`
	RefundedAt  *time.Time `gorm:"precision:3"`
	CreatedAt   time.Time  `gorm:"precision:3;not null"`
	UpdatedAt   time.Time  `gorm:"precision:3;not null"`
}

func (Order) TableName() string { return "orders" }

// Items decodes the snapshot line items; malformed stored JSON yields an
// empty list.
func (o *Order) Items() []reviews.LineItem {
	var items []reviews.LineItem
	if len(o.ItemsJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(o.ItemsJSON, &items); err != nil {
		return nil
	}
	return items
}

func (o *Order) Address() reviews.Address {
	var a reviews.Address
	if len(o.ShippingAddress) == 0 {
		return reviews.Address{}
	}
	if err := json.Unmarshal(o.ShippingAddress, &a); err != nil {
		return reviews.Address{}
	}
	return a
}

// OrderEvent is the append-only audit trail of actions taken on an order.
type OrderEvent struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	OrderID     string  `gorm:"type:char(36);not null;index:ix_order_events_order_id"`
	ActorUserID string  `gorm:"type:char(36);not null"`
	Action      string  `gorm:"type:varchar(32);not null"`
	FromStatus  string  `gorm:"type:varchar(32);not null"`
	ToStatus    string  `gorm:"type:varchar(32);not null"`
	Note        *string `gorm:"type:varchar(500)"`
	CreatedAt   time.Time
}

func (OrderEvent) TableName() string { return "order_events" }

// FinancialEntry is the money ledger: one row per money movement,
// deduplicated on (ref_type, ref_id, event).
type FinancialEntry struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	OrderID     string `gorm:"type:char(36);not null;index:ix_order_financial_entries_order_id"`
	Event       string `gorm:"type:varchar(32);not null"`
	AmountCents int    `gorm:"not null"` // positive in, negative out
	Currency    string `gorm:"type:char(3);not null"`
	RefType     string `gorm:"type:varchar(16);not null"`
	RefID       string `gorm:"type:char(36);not null"`
	CreatedAt   time.Time
}

func (FinancialEntry) TableName() string { return "order_financial_entries" }
