package orders

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetByID(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "id = ?", strings.ToLower(strings.TrimSpace(id))).Error
	return o, err
}

func (r *Repo) GetByNumber(ctx context.Context, number string) (Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "order_number = ?", strings.TrimSpace(number)).Error
	return o, err
}

func (r *Repo) ListByUser(ctx context.Context, userID string, page, size int) ([]Order, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	var out []Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&out).Error
	return out, err
}

type AdminListParams struct {
	Status   string // payment status filter, optional
	Page     int
	PageSize int
}

type AdminListResult struct {
	Items []Order
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

	q := r.db.WithContext(ctx).Model(&Order{})
	if s := strings.TrimSpace(in.Status); s != "" {
		q = q.Where("payment_status = ?", s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return AdminListResult{}, err
	}

	var items []Order
	if err := q.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return AdminListResult{}, err
	}
	return AdminListResult{Items: items, Total: total}, nil
}

func (r *Repo) EventsByOrder(ctx context.Context, orderID string) ([]OrderEvent, error) {
	var evs []OrderEvent
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&evs, "order_id = ?", orderID).Error
	return evs, err
}
