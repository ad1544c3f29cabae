package mysql

import (
	"context"
	"errors"

	"chama-approvals/internal/domain/approval"
	"chama-approvals/internal/domain/directory"

	"gorm.io/gorm"
)

var signerRoles = []directory.Role{directory.RoleChairperson, directory.RoleTreasurer, directory.RoleSecretary}

// Directory reads group membership tables to answer quorum questions.
type Directory struct {
	db              *gorm.DB
	defaultRequired int
}

func NewDirectory(db *gorm.DB, defaultRequired int) *Directory {
	return &Directory{db: db, defaultRequired: defaultRequired}
}

func (d *Directory) ResolveQuorum(ctx context.Context, groupID string, t approval.Type) (directory.Quorum, error) {
	var signers []string
	res := d.db.WithContext(ctx).
		Model(&directory.Member{}).
		Where("group_id = ? AND active = ? AND role IN ?", groupID, true, signerRoles).
		Pluck("member_id", &signers)
	if res.Error != nil {
		return directory.Quorum{}, res.Error
	}

	required := d.defaultRequired
	var p directory.Policy
	err := d.db.WithContext(ctx).Where("group_id = ? AND approval_type = ?", groupID, t).First(&p).Error
	switch {
	case err == nil:
		required = p.RequiredApprovals
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return directory.Quorum{}, err
	}

	q := directory.Quorum{RequiredApprovals: required, Signers: make(map[string]struct{}, len(signers))}
	for _, s := range signers {
		q.Signers[s] = struct{}{}
	}
	return q, nil
}

// IsRequestAuthorized: any active member may ask for a loan; payouts from group
// funds (expenses, withdrawals) are raised by officials only.
func (d *Directory) IsRequestAuthorized(ctx context.Context, groupID string, t approval.Type, requesterID string) (bool, error) {
	m, err := d.member(ctx, groupID, requesterID)
	if errors.Is(err, directory.ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !m.Active {
		return false, nil
	}
	if t == approval.TypeLoan {
		return true, nil
	}
	return m.Role.Official(), nil
}

func (d *Directory) MemberName(ctx context.Context, groupID, memberID string) (string, error) {
	m, err := d.member(ctx, groupID, memberID)
	if err != nil {
		return "", err
	}
	return m.DisplayName, nil
}

func (d *Directory) IsMember(ctx context.Context, groupID, memberID string) (bool, error) {
	m, err := d.member(ctx, groupID, memberID)
	if errors.Is(err, directory.ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Active, nil
}

func (d *Directory) member(ctx context.Context, groupID, memberID string) (*directory.Member, error) {
	var m directory.Member
	err := d.db.WithContext(ctx).Where("group_id = ? AND member_id = ?", groupID, memberID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, directory.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
