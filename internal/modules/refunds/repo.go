package refunds

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetByID(ctx context.Context, id string) (RefundRequest, error) {
	var req RefundRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", strings.TrimSpace(id)).Error
	return req, err
}

func (r *Repo) ListByOrder(ctx context.Context, orderID string) ([]RefundRequest, error) {
	var out []RefundRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("requested_at DESC").
		Find(&out).Error
	return out, err
}

type AdminListParams struct {
	Status   string // optional
	Page     int
	PageSize int
}

type AdminListResult struct {
	Items []RefundRequest
	Total int64
}

func (r *Repo) AdminList(ctx context.Context, in AdminListParams) (AdminListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 30
	}

	q := r.db.WithContext(ctx).Model(&RefundRequest{})
	if s := strings.TrimSpace(in.Status); s != "" {
		q = q.Where("status = ?", s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return AdminListResult{}, err
	}

	var items []RefundRequest
	if err := q.
		Order("requested_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return AdminListResult{}, err
	}
	return AdminListResult{Items: items, Total: total}, nil
}
