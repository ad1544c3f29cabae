package mysql

import (
	"chama-approvals/internal/domain/approval"
	"chama-approvals/internal/domain/directory"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table this service reads or writes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&approval.Request{},
		&approval.Signature{},
		&directory.Member{},
		&directory.Policy{},
	)
}
