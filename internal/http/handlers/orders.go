package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/middleware"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/orders"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

type OrdersHandler struct {
	Repo *orders.Repo
}

func NewOrdersHandler(repo *orders.Repo) *OrdersHandler {
	return &OrdersHandler{Repo: repo}
}

type orderView struct {
	ID                string             `json:"id"`
	OrderNumber       string             `json:"orderNumber"`
	OrderReviewID     uint64             `json:"orderReviewId"`
	Items             []reviews.LineItem `json:"items"`
	ShippingAddress   reviews.Address    `json:"shippingAddress"`
	SubtotalCents     int                `json:"subtotalCents"`
	ShippingCents     int                `json:"shippingCents"`
	TaxCents          int                `json:"taxCents"`
	TotalCents        int                `json:"totalCents"`
	RefundedCents     int                `json:"refundedCents"`
	Currency          string             `json:"currency"`
	PaymentStatus     string             `json:"paymentStatus"`
	FulfillmentStatus string             `json:"fulfillmentStatus"`
	PaymentProvider   string             `json:"paymentProvider"`
	TrackingCarrier   *string            `json:"trackingCarrier,omitempty"`
	TrackingNumber    *string            `json:"trackingNumber,omitempty"`
	PaidAt            time.Time          `json:"paidAt"`
	ShippedAt         *time.Time         `json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time         `json:"deliveredAt,omitempty"`
	RefundedAt        *time.Time         `json:"refundedAt,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
}

func toOrderView(o orders.Order) orderView {
	return orderView{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		OrderReviewID:     o.OrderReviewID,
		Items:             o.Items(),
		ShippingAddress:   o.Address(),
		SubtotalCents:     o.SubtotalCents,
		ShippingCents:     o.ShippingCents,
		TaxCents:          o.TaxCents,
		TotalCents:        o.TotalCents,
		RefundedCents:     o.RefundedCents,
		Currency:          o.Currency,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		PaymentProvider:   o.PaymentProvider,
		TrackingCarrier:   o.TrackingCarrier,
		TrackingNumber:    o.TrackingNumber,
		PaidAt:            o.PaidAt,
		ShippedAt:         o.ShippedAt,
		DeliveredAt:       o.DeliveredAt,
		RefundedAt:        o.RefundedAt,
		CreatedAt:         o.CreatedAt,
	}
}

// GET /api/orders
func (h *OrdersHandler) ListMine(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	page := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), 20)

	items, err := h.Repo.ListByUser(c.Request.Context(), u.ID, page, size)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	out := make([]orderView, 0, len(items))
	for _, o := range items {
		out = append(out, toOrderView(o))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// GET /api/orders/:id
func (h *OrdersHandler) Get(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	o, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if o.UserID != u.ID && u.Role != middleware.RoleAdmin {
		middleware.Fail(c, apperr.NotFoundErr("Order not found."))
		return
	}
	c.JSON(http.StatusOK, toOrderView(o))
}
