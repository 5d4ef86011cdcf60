package reviews

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending            = "pending"
	StatusNeedsChanges       = "needs-changes"
	StatusPendingPayment     = "pending-payment"
	StatusApprovedProcessing = "approved-processing"
	StatusRejected           = "rejected"
)

// OrderReview is the pre-payment submission. It is never deleted; every
// state change appends to it. The loosely-shaped parts (items, address,
// proofing dialogue) live in JSON columns and are decoded defensively.
type OrderReview struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"type:char(36);not null;index:ix_order_reviews_user_id"`

	OrderData             datatypes.JSON `gorm:"type:json;not null"`
	ShippingAddress       datatypes.JSON `gorm:"type:json;not null"`
	AdminPictureReplies   datatypes.JSON `gorm:"type:json"`
	CustomerConfirmations datatypes.JSON `gorm:"type:json"`

	SubtotalCents int    `gorm:"not null"`
	ShippingCents int    `gorm:"not null"`
	TaxCents      int    `gorm:"not null"`
	TotalCents    int    `gorm:"not null"`
	Currency      string `gorm:"type:char(3);not null"`

	ShippingMethod string  `gorm:"type:varchar(32);not null"`
	CustomerNotes  *string `gorm:"type:text"`
	OperatorNotes  *string `gorm:"type:text"`

	Status       string  `gorm:"type:varchar(32);not null;index:ix_order_reviews_status"`
	RejectReason *string `gorm:"type:varchar(500)"`

	SubmittedAt            time.Time  `gorm:"precision:3;not null"`
	ReviewedAt             *time.Time `gorm:"precision:3"`
	PictureReplyUploadedAt *time.Time `gorm:"precision:3"`
	ConfirmedAt            *time.Time `gorm:"precision:3"`
	UpdatedAt              time.Time  `gorm:"precision:3;not null"`
}

func (OrderReview) TableName() string { return "order_reviews" }

// StyleOption is one selected style choice on a design. Price may arrive as
// a number or a numeric string from stored JSON.
type StyleOption struct {
	Name  string `json:"name"`
	Price any    `json:"price"`
}

// EmbroideryDesign is one uploaded artwork placed on a product.
type EmbroideryDesign struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	WidthIn  float64 `json:"widthIn"`
	HeightIn float64 `json:"heightIn"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Notes    string  `json:"notes"`

	// single-choice groups
	Coverage *StyleOption `json:"coverage,omitempty"`
	Material *StyleOption `json:"material,omitempty"`
	Border   *StyleOption `json:"border,omitempty"`
	Backing  *StyleOption `json:"backing,omitempty"`
	Cutting  *StyleOption `json:"cutting,omitempty"`

	// multi-choice groups
	Threads  []StyleOption `json:"threads,omitempty"`
	Upgrades []StyleOption `json:"upgrades,omitempty"`
}

// Duplicate returns a copy with a fresh identity. Scale and rotation reset
// to neutral and placement notes are cleared; the copy belongs to whichever
// line item receives it.
func (d EmbroideryDesign) Duplicate(newID string) EmbroideryDesign {
	cp := d
	cp.ID = newID
	cp.Scale = 1
	cp.Rotation = 0
	cp.Notes = ""
	cp.Threads = append([]StyleOption(nil), d.Threads...)
	cp.Upgrades = append([]StyleOption(nil), d.Upgrades...)
	return cp
}

// SelectedOptions flattens every chosen option across both group kinds.
func (d EmbroideryDesign) SelectedOptions() []StyleOption {
	var out []StyleOption
	for _, o := range []*StyleOption{d.Coverage, d.Material, d.Border, d.Backing, d.Cutting} {
		if o != nil {
			out = append(out, *o)
		}
	}
	out = append(out, d.Threads...)
	out = append(out, d.Upgrades...)
	return out
}

// PricingBreakdown is frozen at submission time and never recomputed from
// live catalog data.
type PricingBreakdown struct {
	BasePriceCents int `json:"basePriceCents"`
	MaterialCents  int `json:"materialCents"`
	OptionsCents   int `json:"optionsCents"`
	UnitTotalCents int `json:"unitTotalCents"`
	LineTotalCents int `json:"lineTotalCents"`
}

// LineItem is one ordered line. ID is assigned at review creation and is
// the only key picture replies and confirmations may reference.
type LineItem struct {
	ID        string             `json:"id"`
	ProductID *string            `json:"productId,omitempty"`
	Name      string             `json:"name"`
	Quantity  int                `json:"quantity"`
	Designs   []EmbroideryDesign `json:"designs"`
	Pricing   PricingBreakdown   `json:"pricing"`
}

// PictureReply is one operator proof for one line item. Replies are
// append-only; later revisions for the same item are new entries.
type PictureReply struct {
	ID         string    `json:"id"`
	LineItemID string    `json:"lineItemId"`
	ImageURL   string    `json:"imageUrl"`
	Note       string    `json:"note,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Confirmation is the customer's accept/reject answer for one line item's
// latest proof. Appended, never overwritten; the newest entry per item wins.
type Confirmation struct {
	LineItemID  string    `json:"lineItemId"`
	Accepted    bool      `json:"accepted"`
	Note        string    `json:"note,omitempty"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// Address is the persisted shipping address shape.
type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email,omitempty"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Decoders below never fail past the boundary: malformed stored JSON is
// treated as empty.

func (r *OrderReview) Items() []LineItem {
	var items []LineItem
	if len(r.OrderData) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.OrderData, &items); err != nil {
		return nil
	}
	return items
}

func (r *OrderReview) Replies() []PictureReply {
	var replies []PictureReply
	if len(r.AdminPictureReplies) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.AdminPictureReplies, &replies); err != nil {
		return nil
	}
	return replies
}

func (r *OrderReview) Confirmations() []Confirmation {
	var confs []Confirmation
	if len(r.CustomerConfirmations) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.CustomerConfirmations, &confs); err != nil {
		return nil
	}
	return confs
}

func (r *OrderReview) Address() Address {
	var a Address
	if len(r.ShippingAddress) == 0 {
		return Address{}
	}
	if err := json.Unmarshal(r.ShippingAddress, &a); err != nil {
		return Address{}
	}
	return a
}

// LatestConfirmations reduces the append-only confirmation log to the most
// recent entry per line item.
func LatestConfirmations(confs []Confirmation) map[string]Confirmation {
	latest := make(map[string]Confirmation, len(confs))
	for _, c := range confs {
		// the log is stored in append order; later entries win
		latest[c.LineItemID] = c
	}
	return latest
}
