package reviews

import "time"

// Snapshot is the full decoded state of a review, published on every
// committed transition and returned by the read endpoints.
type Snapshot struct {
	ID     uint64 `json:"id"`
	UserID string `json:"userId"`
	Status string `json:"status"`

	Items           []LineItem     `json:"items"`
	ShippingAddress Address        `json:"shippingAddress"`
	Replies         []PictureReply `json:"pictureReplies"`
	Confirmations   []Confirmation `json:"confirmations"`

	SubtotalCents int    `json:"subtotalCents"`
	ShippingCents int    `json:"shippingCents"`
	TaxCents      int    `json:"taxCents"`
	TotalCents    int    `json:"totalCents"`
	Currency      string `json:"currency"`

	ShippingMethod string  `json:"shippingMethod"`
	CustomerNotes  *string `json:"customerNotes,omitempty"`
	OperatorNotes  *string `json:"operatorNotes,omitempty"`
	RejectReason   *string `json:"rejectReason,omitempty"`

	SubmittedAt            time.Time  `json:"submittedAt"`
	ReviewedAt             *time.Time `json:"reviewedAt,omitempty"`
	PictureReplyUploadedAt *time.Time `json:"pictureReplyUploadedAt,omitempty"`
	ConfirmedAt            *time.Time `json:"confirmedAt,omitempty"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

func (r *OrderReview) Snapshot() Snapshot {
	return Snapshot{
		ID:                     r.ID,
		UserID:                 r.UserID,
		Status:                 r.Status,
		Items:                  r.Items(),
		ShippingAddress:        r.Address(),
		Replies:                r.Replies(),
		Confirmations:          r.Confirmations(),
		SubtotalCents:          r.SubtotalCents,
		ShippingCents:          r.ShippingCents,
		TaxCents:               r.TaxCents,
		TotalCents:             r.TotalCents,
		Currency:               r.Currency,
		ShippingMethod:         r.ShippingMethod,
		CustomerNotes:          r.CustomerNotes,
		OperatorNotes:          r.OperatorNotes,
		RejectReason:           r.RejectReason,
		SubmittedAt:            r.SubmittedAt,
		ReviewedAt:             r.ReviewedAt,
		PictureReplyUploadedAt: r.PictureReplyUploadedAt,
		ConfirmedAt:            r.ConfirmedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}
