package mysql

import (
	"testing"
	"time"

	approvalDomain "chama-approvals/internal/domain/approval"
	"chama-approvals/internal/domain/directory"
	infradb "chama-approvals/internal/infrastructure/db"
	"chama-approvals/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a private in-memory sqlite DB and migrates the real models.
// One connection keeps ":memory:" shared across the pool.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infradb.OpenGormWithDialector(sqlite.Open(":memory:"), infradb.Options{LogLevel: logger.Silent, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func makeRequest(groupID string, created time.Time) *approvalDomain.Request {
	return &approvalDomain.Request{
		RequestID:         id.NewID32(),
		GroupID:           groupID,
		Type:              approvalDomain.TypeExpense,
		Amount:            decimal.RequireFromString("1250.75"),
		Description:       "venue hire",
		RequestedBy:       "m-1",
		RequestedByName:   "Wanjiru",
		RequiredApprovals: 2,
		Status:            approvalDomain.StatusPending,
		CreatedAt:         created.UTC(),
	}
}

func makeSignature(requestID uint64, signer string, approved bool) *approvalDomain.Signature {
	return &approvalDomain.Signature{
		SignatureID: id.NewID32(),
		RequestID:   requestID,
		SignerID:    signer,
		Approved:    approved,
		SignedAt:    time.Now().UTC(),
	}
}

func seedMembers(t *testing.T, db *gorm.DB, groupID string, members ...directory.Member) {
	t.Helper()
	for i := range members {
		members[i].GroupID = groupID
		if err := db.Create(&members[i]).Error; err != nil {
			t.Fatalf("seed member %s: %v", members[i].MemberID, err)
		}
	}
}
