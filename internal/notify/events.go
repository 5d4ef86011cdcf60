package notify

// Event names published on the client notification channel.
const (
	EventDesignReviewUpdated          = "design-review-updated"
	EventPictureReplyUploaded         = "picture-reply-uploaded"
	EventCustomerConfirmationReceived = "customer-confirmation-received"
	EventOrderStatusChanged           = "order-status-changed"
	EventRefundStatusChanged          = "refund-status-changed"
	EventStockAlert                   = "stock-alert"
)

// Publisher mirrors committed state changes to connected clients. It is a
// side channel only: implementations must never block the caller and never
// return an error to it.
type Publisher interface {
	Publish(event string, subjectID string, payload any)
}

// Noop discards every publication. Used where a hub is not wired.
type Noop struct{}

func (Noop) Publish(string, string, any) {}
