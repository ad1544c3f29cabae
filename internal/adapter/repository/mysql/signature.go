package mysql

import (
	"context"

	approvalDomain "chama-approvals/internal/domain/approval"

	"gorm.io/gorm"
)

type SignatureRepository struct{ db *gorm.DB }

func NewSignatureRepository(db *gorm.DB) *SignatureRepository { return &SignatureRepository{db: db} }

// Append relies on ux_approval_signatures_request_signer, not a prior lookup,
// to stop a member from voting twice.
func (r *SignatureRepository) Append(ctx context.Context, s *approvalDomain.Signature) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if isDuplicateKey(err) {
		return approvalDomain.ErrDuplicateSignature
	}
	return err
}

type tallyRow struct {
	RequestID uint64
	Approved  bool
	N         int
}

func (r *SignatureRepository) Tally(ctx context.Context, requestID uint64) (approvalDomain.Tally, error) {
	m, err := r.TallyMany(ctx, []uint64{requestID})
	if err != nil {
		return approvalDomain.Tally{}, err
	}
	return m[requestID], nil
}

func (r *SignatureRepository) TallyMany(ctx context.Context, requestIDs []uint64) (map[uint64]approvalDomain.Tally, error) {
	out := make(map[uint64]approvalDomain.Tally, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	var rows []tallyRow
	res := r.db.WithContext(ctx).
		Model(&approvalDomain.Signature{}).
		Select("request_id, approved, COUNT(*) AS n").
		Where("request_id IN ?", requestIDs).
		Group("request_id, approved").
		Scan(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	for _, row := range rows {
		t := out[row.RequestID]
		if row.Approved {
			t.Approvals += row.N
		} else {
			t.Rejections += row.N
		}
		t.TotalSigners += row.N
		out[row.RequestID] = t
	}
	return out, nil
}

// ListByRequest returns signatures in commit order.
func (r *SignatureRepository) ListByRequest(ctx context.Context, requestID uint64) ([]approvalDomain.Signature, error) {
	var out []approvalDomain.Signature
	res := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("id ASC").Find(&out)
	return out, res.Error
}

func (r *SignatureRepository) ListByRequests(ctx context.Context, requestIDs []uint64) (map[uint64][]approvalDomain.Signature, error) {
	out := make(map[uint64][]approvalDomain.Signature, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	var rows []approvalDomain.Signature
	res := r.db.WithContext(ctx).Where("request_id IN ?", requestIDs).Order("id ASC").Find(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	for _, s := range rows {
		out[s.RequestID] = append(out[s.RequestID], s)
	}
	return out, nil
}
