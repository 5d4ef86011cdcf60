package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/middleware"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/validation"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/orders"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

type OrdersHandler struct {
	Svc  *orders.AdminService
	Repo *orders.Repo
}

func NewOrdersHandler(svc *orders.AdminService, repo *orders.Repo) *OrdersHandler {
	return &OrdersHandler{Svc: svc, Repo: repo}
}

type adminOrderListItem struct {
	ID                string    `json:"id"`
	OrderNumber       string    `json:"orderNumber"`
	UserID            string    `json:"userId"`
	TotalCents        int       `json:"totalCents"`
	RefundedCents     int       `json:"refundedCents"`
	Currency          string    `json:"currency"`
	PaymentStatus     string    `json:"paymentStatus"`
	FulfillmentStatus string    `json:"fulfillmentStatus"`
	PaymentProvider   string    `json:"paymentProvider"`
	CreatedAt         time.Time `json:"createdAt"`
}

// GET /api/admin/orders
func (h *OrdersHandler) List(c *gin.Context) {
	res, err := h.Repo.AdminList(c.Request.Context(), orders.AdminListParams{
		Status:   c.Query("payment_status"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 30),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	items := make([]adminOrderListItem, 0, len(res.Items))
	for _, o := range res.Items {
		items = append(items, adminOrderListItem{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			UserID:            o.UserID,
			TotalCents:        o.TotalCents,
			RefundedCents:     o.RefundedCents,
			Currency:          o.Currency,
			PaymentStatus:     o.PaymentStatus,
			FulfillmentStatus: o.FulfillmentStatus,
			PaymentProvider:   o.PaymentProvider,
			CreatedAt:         o.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": res.Total})
}

type adminOrderDetail struct {
	adminOrderListItem
	OrderReviewID   uint64             `json:"orderReviewId"`
	Items           []reviews.LineItem `json:"items"`
	ShippingAddress reviews.Address    `json:"shippingAddress"`
	SubtotalCents   int                `json:"subtotalCents"`
	ShippingCents   int                `json:"shippingCents"`
	TaxCents        int                `json:"taxCents"`
	TrackingCarrier *string            `json:"trackingCarrier,omitempty"`
	TrackingNumber  *string            `json:"trackingNumber,omitempty"`
	PaidAt          time.Time          `json:"paidAt"`
	ShippedAt       *time.Time         `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time         `json:"deliveredAt,omitempty"`
	RefundedAt      *time.Time         `json:"refundedAt,omitempty"`
}

type orderEventView struct {
	ID          string    `json:"id"`
	ActorUserID string    `json:"actorUserId"`
	Action      string    `json:"action"`
	FromStatus  string    `json:"fromStatus"`
	ToStatus    string    `json:"toStatus"`
	Note        *string   `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GET /api/admin/orders/:id
func (h *OrdersHandler) Detail(c *gin.Context) {
	o, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	evs, err := h.Repo.EventsByOrder(c.Request.Context(), o.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	events := make([]orderEventView, 0, len(evs))
	for _, ev := range evs {
		events = append(events, orderEventView{
			ID:          ev.ID,
			ActorUserID: ev.ActorUserID,
			Action:      ev.Action,
			FromStatus:  ev.FromStatus,
			ToStatus:    ev.ToStatus,
			Note:        ev.Note,
			CreatedAt:   ev.CreatedAt,
		})
	}

	detail := adminOrderDetail{
		adminOrderListItem: adminOrderListItem{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			UserID:            o.UserID,
			TotalCents:        o.TotalCents,
			RefundedCents:     o.RefundedCents,
			Currency:          o.Currency,
			PaymentStatus:     o.PaymentStatus,
			FulfillmentStatus: o.FulfillmentStatus,
			PaymentProvider:   o.PaymentProvider,
			CreatedAt:         o.CreatedAt,
		},
		OrderReviewID:   o.OrderReviewID,
		Items:           o.Items(),
		ShippingAddress: o.Address(),
		SubtotalCents:   o.SubtotalCents,
		ShippingCents:   o.ShippingCents,
		TaxCents:        o.TaxCents,
		TrackingCarrier: o.TrackingCarrier,
		TrackingNumber:  o.TrackingNumber,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		RefundedAt:      o.RefundedAt,
	}

	c.JSON(http.StatusOK, gin.H{
		"order":  detail,
		"events": events,
	})
}

type shipReq struct {
	TrackingCarrier string `json:"trackingCarrier" binding:"required"`
	TrackingNumber  string `json:"trackingNumber" binding:"required"`
	Note            string `json:"note"`
}

// POST /api/admin/orders/:id/ship
func (h *OrdersHandler) Ship(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	var req shipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Tracking details are required.", validation.FromBindError(err, &req)))
		return
	}

	err := h.Svc.Transition(c.Request.Context(), orders.TransitionInput{
		OrderID:         c.Param("id"),
		ActorUserID:     u.ID,
		Action:          "ship",
		TrackingCarrier: req.TrackingCarrier,
		TrackingNumber:  req.TrackingNumber,
		Note:            req.Note,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type deliverReq struct {
	Note string `json:"note"`
}

// POST /api/admin/orders/:id/deliver
func (h *OrdersHandler) Deliver(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	var req deliverReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	err := h.Svc.Transition(c.Request.Context(), orders.TransitionInput{
		OrderID:     c.Param("id"),
		ActorUserID: u.ID,
		Action:      "deliver",
		Note:        req.Note,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
