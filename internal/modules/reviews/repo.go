package reviews

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

type AdminListParams struct {
	Status   string // optional filter
	Page     int
	PageSize int
}

type AdminListResult struct {
	Items []OrderReview
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
	status := strings.TrimSpace(in.Status)

	q := r.db.WithContext(ctx).Model(&OrderReview{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return AdminListResult{}, err
	}

	var items []OrderReview
	if err := q.
		Order("submitted_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return AdminListResult{}, err
	}

	return AdminListResult{Items: items, Total: total}, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string, page, size int) ([]OrderReview, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	var items []OrderReview
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error
	return items, err
}
