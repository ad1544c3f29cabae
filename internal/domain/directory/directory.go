package directory

import (
	"context"
	"errors"

	"chama-approvals/internal/domain/approval"
)

var ErrMemberNotFound = errors.New("member not found in group")

type Role string

const (
	RoleChairperson Role = "CHAIRPERSON"
	RoleTreasurer   Role = "TREASURER"
	RoleSecretary   Role = "SECRETARY"
	RoleMember      Role = "MEMBER"
)

// Official roles sign disbursements.
func (r Role) Official() bool {
	return r == RoleChairperson || r == RoleTreasurer || r == RoleSecretary
}

// Quorum is the directory's answer for one group and approval type.
type Quorum struct {
	RequiredApprovals int
	Signers           map[string]struct{}
}

func (q Quorum) IsSigner(memberID string) bool {
	_, ok := q.Signers[memberID]
	return ok
}

// SignerDirectory is owned by the membership subsystem; the approval engine only reads it.
type SignerDirectory interface {
	ResolveQuorum(ctx context.Context, groupID string, t approval.Type) (Quorum, error)
	IsRequestAuthorized(ctx context.Context, groupID string, t approval.Type, requesterID string) (bool, error)
	MemberName(ctx context.Context, groupID, memberID string) (string, error)
	// IsMember is true for active members of the group, officials included.
	IsMember(ctx context.Context, groupID, memberID string) (bool, error)
}

// Table: group_members. Written by the membership subsystem.
type Member struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID     string `gorm:"column:group_id;type:varchar(64);not null;uniqueIndex:ux_group_members_group_member,priority:1"`
	MemberID    string `gorm:"column:member_id;type:varchar(64);not null;uniqueIndex:ux_group_members_group_member,priority:2"`
	DisplayName string `gorm:"column:display_name;type:varchar(255)"`
	Role        Role   `gorm:"column:role;type:varchar(16);not null;default:MEMBER"`
	Active      bool   `gorm:"column:active;not null"`
}

func (Member) TableName() string { return "group_members" }

// Table: approval_policies. Absent rows fall back to the configured default quorum.
type Policy struct {
	ID                uint64        `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID           string        `gorm:"column:group_id;type:varchar(64);not null;uniqueIndex:ux_approval_policies_group_type,priority:1"`
	Type              approval.Type `gorm:"column:approval_type;type:varchar(16);not null;uniqueIndex:ux_approval_policies_group_type,priority:2"`
	RequiredApprovals int           `gorm:"column:required_approvals;not null"`
}

func (Policy) TableName() string { return "approval_policies" }
