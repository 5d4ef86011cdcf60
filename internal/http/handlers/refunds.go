package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/middleware"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/validation"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/orders"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/refunds"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

type RefundsHandler struct {
	Svc        *refunds.Service
	Repo       *refunds.Repo
	OrdersRepo *orders.Repo
}

func NewRefundsHandler(svc *refunds.Service, repo *refunds.Repo, ordersRepo *orders.Repo) *RefundsHandler {
	return &RefundsHandler{Svc: svc, Repo: repo, OrdersRepo: ordersRepo}
}

type refundLineReq struct {
	LineItemID    string `json:"lineItemId" binding:"required"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity" binding:"required,gte=1"`
	UnitCents     int    `json:"unitCents"`
	TaxCents      int    `json:"taxCents"`
	ShippingCents int    `json:"shippingCents"`
}

type createRefundReq struct {
	Type           string          `json:"type" binding:"required,oneof=full partial"`
	RequestedCents int             `json:"requestedCents"`
	Lines          []refundLineReq `json:"lines"`
	ReasonCode     string          `json:"reasonCode" binding:"required"`
	Description    string          `json:"description"`
}

// POST /api/orders/:id/refunds
func (h *RefundsHandler) Create(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	orderID := c.Param("id")

	o, err := h.OrdersRepo.GetByID(c.Request.Context(), orderID)
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

	var req createRefundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Refund request is invalid.", validation.FromBindError(err, &req)))
		return
	}

	in := refunds.CreateInput{
		OrderID:           o.ID,
		RequestedByUserID: u.ID,
		RequestedCents:    req.RequestedCents,
		Type:              req.Type,
		ReasonCode:        req.ReasonCode,
		Description:       req.Description,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, refunds.Line{
			LineItemID:    l.LineItemID,
			Name:          l.Name,
			Quantity:      l.Quantity,
			UnitCents:     l.UnitCents,
			TaxCents:      l.TaxCents,
			ShippingCents: l.ShippingCents,
		})
	}

	r, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r.View())
}

// GET /api/orders/:id/refunds
func (h *RefundsHandler) ListForOrder(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	orderID := c.Param("id")

	o, err := h.OrdersRepo.GetByID(c.Request.Context(), orderID)
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

	items, err := h.Repo.ListByOrder(c.Request.Context(), o.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	out := make([]refunds.View, 0, len(items))
	for i := range items {
		out = append(out, items[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}
