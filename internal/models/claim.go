package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заявки на владение. Approved и Rejected — терминальные,
// решение по заявке принимается ровно один раз.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)

// Claim описывает заявление пользователя о том, что предмет принадлежит ему.
// На один предмет может приходиться несколько конкурирующих заявок.
type Claim struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ItemID     uuid.UUID  `db:"item_id" json:"item_id"`
	ClaimantID uuid.UUID  `db:"claimant_id" json:"claimant_id"`
	Details    string     `db:"details" json:"details"`
	Status     string     `db:"status" json:"status"`
	DecidedBy  *uuid.UUID `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt  *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ValidClaimStatus проверяет принадлежность статуса допустимому набору.
func ValidClaimStatus(status string) bool {
	switch status {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}
