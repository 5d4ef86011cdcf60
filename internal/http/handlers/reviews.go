package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/middleware"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/validation"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

type ReviewsHandler struct {
	Svc  *reviews.Service
	Repo *reviews.Repo
}

func NewReviewsHandler(svc *reviews.Service, repo *reviews.Repo) *ReviewsHandler {
	return &ReviewsHandler{Svc: svc, Repo: repo}
}

type submitDesignReq struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	WidthIn  float64 `json:"widthIn" binding:"required"`
	HeightIn float64 `json:"heightIn" binding:"required"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Notes    string  `json:"notes"`

	Coverage *reviews.StyleOption  `json:"coverage"`
	Material *reviews.StyleOption  `json:"material"`
	Border   *reviews.StyleOption  `json:"border"`
	Backing  *reviews.StyleOption  `json:"backing"`
	Cutting  *reviews.StyleOption  `json:"cutting"`
	Threads  []reviews.StyleOption `json:"threads"`
	Upgrades []reviews.StyleOption `json:"upgrades"`
}

type submitItemReq struct {
	ProductID      *string           `json:"productId"`
	Name           string            `json:"name" binding:"required"`
	Quantity       int               `json:"quantity" binding:"required,gte=1"`
	BasePriceCents int               `json:"basePriceCents"`
	Designs        []submitDesignReq `json:"designs"`
}

type submitReviewReq struct {
	Items          []submitItemReq `json:"items" binding:"required,min=1"`
	Address        reviews.Address `json:"shippingAddress" binding:"required"`
	ShippingMethod string          `json:"shippingMethod" binding:"required"`
	Currency       string          `json:"currency"`
	CustomerNotes  string          `json:"customerNotes"`
}

// POST /api/reviews
func (h *ReviewsHandler) Submit(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	var req submitReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Submission is invalid.", validation.FromBindError(err, &req)))
		return
	}

	in := reviews.SubmitInput{
		UserID:         u.ID,
		Address:        req.Address,
		ShippingMethod: req.ShippingMethod,
		Currency:       req.Currency,
		CustomerNotes:  req.CustomerNotes,
	}
	for _, it := range req.Items {
		item := reviews.SubmitItemInput{
			ProductID:      it.ProductID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			BasePriceCents: it.BasePriceCents,
		}
		for _, d := range it.Designs {
			item.Designs = append(item.Designs, reviews.EmbroideryDesign{
				ID:       d.ID,
				Name:     d.Name,
				WidthIn:  d.WidthIn,
				HeightIn: d.HeightIn,
				Scale:    d.Scale,
				Rotation: d.Rotation,
				Notes:    d.Notes,
				Coverage: d.Coverage,
				Material: d.Material,
				Border:   d.Border,
				Backing:  d.Backing,
				Cutting:  d.Cutting,
				Threads:  d.Threads,
				Upgrades: d.Upgrades,
			})
		}
		in.Items = append(in.Items, item)
	}

	snap, err := h.Svc.Submit(c.Request.Context(), in)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// GET /api/reviews
func (h *ReviewsHandler) ListMine(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	page := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), 20)

	items, err := h.Repo.ListByUser(c.Request.Context(), u.ID, page, size)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	out := make([]reviews.Snapshot, 0, len(items))
	for i := range items {
		out = append(out, items[i].Snapshot())
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// GET /api/reviews/:id
func (h *ReviewsHandler) Get(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	u, _ := middleware.CurrentUser(c)

	snap, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Design review not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if snap.UserID != u.ID && u.Role != middleware.RoleAdmin {
		middleware.Fail(c, apperr.NotFoundErr("Design review not found."))
		return
	}
	c.JSON(http.StatusOK, snap)
}

type confirmationReq struct {
	LineItemID string `json:"lineItemId" binding:"required"`
	Accepted   bool   `json:"accepted"`
	Note       string `json:"note"`
}

type confirmationsReq struct {
	Answers []confirmationReq `json:"confirmations" binding:"required,min=1"`
}

// POST /api/reviews/:id/confirmations
func (h *ReviewsHandler) Confirm(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	u, _ := middleware.CurrentUser(c)

	var req confirmationsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Confirmations are invalid.", validation.FromBindError(err, &req)))
		return
	}

	in := reviews.SubmitConfirmationsInput{ReviewID: id, UserID: u.ID}
	for _, a := range req.Answers {
		in.Answers = append(in.Answers, reviews.ConfirmationInput{
			LineItemID: a.LineItemID,
			Accepted:   a.Accepted,
			Note:       a.Note,
		})
	}

	snap, err := h.Svc.SubmitConfirmations(c.Request.Context(), reviews.ActorCustomer, in)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Design review not found."))
			return
		}
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func reviewID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		middleware.Fail(c, apperr.InvalidErr("Invalid review id.", map[string]string{"id": "must be a positive integer"}))
		return 0, false
	}
	return id, true
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
