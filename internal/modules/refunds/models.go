package refunds

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending     = "pending"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusProcessing  = "processing"
	StatusCompleted   = "completed"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusFailed      = "failed"
)

const (
	TypeFull    = "full"
	TypePartial = "partial"
)

// Line is one refunded line item with its proportional tax and shipping
// share. Stored as JSON on the request.
type Line struct {
	LineItemID    string `json:"lineItemId"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	UnitCents     int    `json:"unitCents"`
	TaxCents      int    `json:"taxCents"`
	ShippingCents int    `json:"shippingCents"`
}

func (l Line) TotalCents() int {
	return l.UnitCents*l.Quantity + l.TaxCents + l.ShippingCents
}

// RefundRequest is one refund intent against exactly one order. Rows are
// append-mutated through the transitions in this package and never deleted.
type RefundRequest struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	OrderID string `gorm:"type:char(36);not null;index:ix_refund_requests_order_id"`

	Type              string         `gorm:"type:varchar(16);not null"`
	RequestedCents    int            `gorm:"not null"`
	OriginalCents     int            `gorm:"not null"`
	Currency          string         `gorm:"type:char(3);not null"`
	LinesJSON         datatypes.JSON `gorm:"type:json"`
	ReasonCode        string         `gorm:"type:varchar(64);not null"`
	Description       *string        `gorm:"type:varchar(500)"`
	Status            string         `gorm:"type:varchar(32);not null"`
	AdminNotes        *string        `gorm:"type:varchar(500)"`
	RejectionReason   *string        `gorm:"type:varchar(500)"`
	RequestedByUserID string         `gorm:"type:char(36);not null"`
	CaptureReference  *string        `gorm:"type:varchar(128)"`
	ProviderRefundID  *string        `gorm:"type:varchar(128)"`
	LastProcessError  *string        `gorm:"type:varchar(255)"`

	RequestedAt time.Time  `gorm:"precision:3;not null"`
	ReviewedAt  *time.Time `gorm:"precision:3"`
	ProcessedAt *time.Time `gorm:"precision:3"`
	CompletedAt *time.Time `gorm:"precision:3"`
	UpdatedAt   time.Time  `gorm:"precision:3;not null"`
}

func (RefundRequest) TableName() string { return "refund_requests" }

// Lines decodes the itemized breakdown; malformed stored JSON yields an
// empty list.
func (r *RefundRequest) Lines() []Line {
	if len(r.LinesJSON) == 0 {
		return nil
	}
	var lines []Line
	if err := json.Unmarshal(r.LinesJSON, &lines); err != nil {
		return nil
	}
	return lines
}
