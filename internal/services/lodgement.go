// internal/services/lodgement.go
package services

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/permitdesk/licensing-backend/internal/models"
)

// Lodgement number prefixes.
const (
	PrefixProposal   = "P"
	PrefixApproval   = "A"
	PrefixCompliance = "C"
)

// nextLodgementNumber issues the next "<prefix><6 digits>" number. It must
// run inside the transaction that stores the numbered record.
func nextLodgementNumber(tx *gorm.DB, prefix string) (string, error) {
	bump := func() (int64, error) {
		res := tx.Model(&models.LodgementSequence{}).
			Where("prefix = ?", prefix).
			UpdateColumn("value", gorm.Expr("value + 1"))
		return res.RowsAffected, res.Error
	}

	affected, err := bump()
	if err != nil {
		return "", fmt.Errorf("failed to advance lodgement sequence: %w", err)
	}
	if affected == 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.LodgementSequence{Prefix: prefix}).Error; err != nil {
			return "", fmt.Errorf("failed to create lodgement sequence: %w", err)
		}
		if _, err := bump(); err != nil {
			return "", fmt.Errorf("failed to advance lodgement sequence: %w", err)
		}
	}

	var seq models.LodgementSequence
	if err := tx.First(&seq, "prefix = ?", prefix).Error; err != nil {
		return "", fmt.Errorf("failed to read lodgement sequence: %w", err)
	}
	return fmt.Sprintf("%s%06d", prefix, seq.Value), nil
}
