package admin

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
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/storage"
)

const maxProofImageBytes = 10 << 20

type ReviewsHandler struct {
	Svc   *reviews.Service
	Repo  *reviews.Repo
	Store storage.Storage
}

func NewReviewsHandler(svc *reviews.Service, repo *reviews.Repo, store storage.Storage) *ReviewsHandler {
	return &ReviewsHandler{Svc: svc, Repo: repo, Store: store}
}

// GET /api/admin/reviews
func (h *ReviewsHandler) List(c *gin.Context) {
	res, err := h.Repo.AdminList(c.Request.Context(), reviews.AdminListParams{
		Status:   c.Query("status"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 30),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	out := make([]reviews.Snapshot, 0, len(res.Items))
	for i := range res.Items {
		out = append(out, res.Items[i].Snapshot())
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "total": res.Total})
}

// GET /api/admin/reviews/:id
func (h *ReviewsHandler) Get(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	snap, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Design review not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// POST /api/admin/reviews/:id/replies
// Multipart: repeated "image" files aligned with repeated "line_item_id"
// and optional "note" fields. Each image is stored and recorded as one
// picture reply.
func (h *ReviewsHandler) UploadReplies(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Expected a multipart upload.", nil))
		return
	}
	files := form.File["image"]
	itemIDs := form.Value["line_item_id"]
	notes := form.Value["note"]

	if len(files) == 0 {
		middleware.Fail(c, apperr.InvalidErr("At least one proof image is required.", map[string]string{"image": "required"}))
		return
	}
	if len(itemIDs) != len(files) {
		middleware.Fail(c, apperr.InvalidErr("Each proof image needs a line_item_id.", map[string]string{"line_item_id": "one per image"}))
		return
	}

	in := reviews.UploadRepliesInput{ReviewID: id}
	for i, fh := range files {
		if fh.Size > maxProofImageBytes {
			middleware.Fail(c, apperr.InvalidErr("Proof image is too large.", map[string]string{"image": "max 10MB"}))
			return
		}
		f, err := fh.Open()
		if err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}
		res, err := h.Store.Put(c.Request.Context(), f, storage.UploadInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
		f.Close()
		if err != nil {
			middleware.Fail(c, apperr.Wrap(err))
			return
		}

		note := ""
		if i < len(notes) {
			note = notes[i]
		}
		in.Replies = append(in.Replies, reviews.ReplyInput{
			LineItemID: itemIDs[i],
			ImageURL:   res.URL,
			Note:       note,
		})
	}

	snap, err := h.Svc.UploadPictureReplies(c.Request.Context(), reviews.ActorOperator, in)
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

type rejectReq struct {
	Reason string `json:"reason" binding:"required"`
}

// POST /api/admin/reviews/:id/reject
func (h *ReviewsHandler) Reject(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	var req rejectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("A rejection reason is required.", validation.FromBindError(err, &req)))
		return
	}

	snap, err := h.Svc.Reject(c.Request.Context(), reviews.ActorOperator, id, req.Reason)
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

// POST /api/admin/reviews/:id/reopen
func (h *ReviewsHandler) Reopen(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	snap, err := h.Svc.Reopen(c.Request.Context(), reviews.ActorOperator, id)
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
