package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/middleware"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/validation"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/refunds"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

type RefundsHandler struct {
	Svc  *refunds.Service
	Repo *refunds.Repo
}

func NewRefundsHandler(svc *refunds.Service, repo *refunds.Repo) *RefundsHandler {
	return &RefundsHandler{Svc: svc, Repo: repo}
}

// GET /api/admin/refunds
func (h *RefundsHandler) List(c *gin.Context) {
	res, err := h.Repo.AdminList(c.Request.Context(), refunds.AdminListParams{
		Status:   c.Query("status"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 30),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	out := make([]refunds.View, 0, len(res.Items))
	for i := range res.Items {
		out = append(out, res.Items[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "total": res.Total})
}

type reviewRefundReq struct {
	AdminNotes string `json:"adminNotes"`
}

// POST /api/admin/refunds/:id/review
func (h *RefundsHandler) Review(c *gin.Context) {
	var req reviewRefundReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}
	r, err := h.Svc.Review(c.Request.Context(), c.Param("id"), req.AdminNotes)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.View())
}

// POST /api/admin/refunds/:id/approve
func (h *RefundsHandler) Approve(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	r, err := h.Svc.Approve(c.Request.Context(), refunds.ApproveInput{
		RefundID:    c.Param("id"),
		ActorUserID: u.ID,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.View())
}

// POST /api/admin/refunds/:id/retry
func (h *RefundsHandler) Retry(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	r, err := h.Svc.Retry(c.Request.Context(), refunds.ApproveInput{
		RefundID:    c.Param("id"),
		ActorUserID: u.ID,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.View())
}

type rejectRefundReq struct {
	Reason string `json:"reason" binding:"required"`
}

// POST /api/admin/refunds/:id/reject
func (h *RefundsHandler) Reject(c *gin.Context) {
	var req rejectRefundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("A rejection reason is required.", validation.FromBindError(err, &req)))
		return
	}
	r, err := h.Svc.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.View())
}

// POST /api/admin/refunds/:id/cancel
func (h *RefundsHandler) Cancel(c *gin.Context) {
	r, err := h.Svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.View())
}

type captureRefReq struct {
	CaptureReference string `json:"captureReference" binding:"required"`
}

// POST /api/admin/refunds/:id/capture-reference
func (h *RefundsHandler) SetCaptureReference(c *gin.Context) {
	var req captureRefReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("A capture reference is required.", validation.FromBindError(err, &req)))
		return
	}
	r, err := h.Svc.SetCaptureReference(c.Request.Context(), c.Param("id"), req.CaptureReference)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.View())
}
