package refunds

import "time"

// View is the JSON shape returned by the API and published to the
// notification fan-out.
type View struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`

	Type            string  `json:"type"`
	RequestedCents  int     `json:"requestedCents"`
	OriginalCents   int     `json:"originalCents"`
	Currency        string  `json:"currency"`
	Lines           []Line  `json:"lines,omitempty"`
	ReasonCode      string  `json:"reasonCode"`
	Description     *string `json:"description,omitempty"`
	Status          string  `json:"status"`
	AdminNotes      *string `json:"adminNotes,omitempty"`
	RejectionReason *string `json:"rejectionReason,omitempty"`

	CaptureReference *string `json:"captureReference,omitempty"`
	ProviderRefundID *string `json:"providerRefundId,omitempty"`
	LastProcessError *string `json:"lastProcessError,omitempty"`

	RequestedAt time.Time  `json:"requestedAt"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (r *RefundRequest) View() View {
	return View{
		ID:               r.ID,
		OrderID:          r.OrderID,
		Type:             r.Type,
		RequestedCents:   r.RequestedCents,
		OriginalCents:    r.OriginalCents,
		Currency:         r.Currency,
		Lines:            r.Lines(),
		ReasonCode:       r.ReasonCode,
		Description:      r.Description,
		Status:           r.Status,
		AdminNotes:       r.AdminNotes,
		RejectionReason:  r.RejectionReason,
		CaptureReference: r.CaptureReference,
		ProviderRefundID: r.ProviderRefundID,
		LastProcessError: r.LastProcessError,
		RequestedAt:      r.RequestedAt,
		ReviewedAt:       r.ReviewedAt,
		ProcessedAt:      r.ProcessedAt,
		CompletedAt:      r.CompletedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
