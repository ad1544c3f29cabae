package mysql

import (
	"context"
	"errors"
	"time"

	approvalDomain "chama-approvals/internal/domain/approval"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultListLimit = 50

type RequestRepository struct{ db *gorm.DB }

func NewRequestRepository(db *gorm.DB) *RequestRepository { return &RequestRepository{db: db} }

func (r *RequestRepository) Create(ctx context.Context, a *approvalDomain.Request) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *RequestRepository) GetByRequestID(ctx context.Context, requestID string) (*approvalDomain.Request, error) {
	var out approvalDomain.Request
	res := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *RequestRepository) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*approvalDomain.Request, error) {
	var out approvalDomain.Request
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).
		First(&out)
	if res.Error != nil {
		return nil, notFound(res.Error)
	}
	return &out, nil
}

func (r *RequestRepository) List(ctx context.Context, f approvalDomain.Filter) ([]approvalDomain.Request, error) {
	q := r.db.WithContext(ctx).Model(&approvalDomain.Request{})
	if f.GroupID != "" {
		q = q.Where("group_id = ?", f.GroupID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []approvalDomain.Request
	res := q.Order("created_at DESC, id DESC").Limit(limit).Offset(f.Offset).Find(&out)
	return out, res.Error
}

func (r *RequestRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, afterID uint64, limit int) ([]approvalDomain.Request, error) {
	var out []approvalDomain.Request
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND id > ?", approvalDomain.StatusPending, cutoff, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out)
	return out, res.Error
}

// Transition only touches a PENDING row; anything else is a caller bug.
func (r *RequestRepository) Transition(ctx context.Context, id uint64, to approvalDomain.Status, reason approvalDomain.Reason, finalizedAt time.Time) error {
	if !to.Terminal() {
		return errors.New("transition target must be a terminal status")
	}
	res := r.db.WithContext(ctx).
		Model(&approvalDomain.Request{}).
		Where("id = ? AND status = ?", id, approvalDomain.StatusPending).
		Updates(map[string]any{
			"status":            to,
			"resolution_reason": reason,
			"finalized_at":      finalizedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return approvalDomain.ErrAlreadyFinalized
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return approvalDomain.ErrNotFound
	}
	return err
}
