package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the read-model this core needs: plan and KYC status are maintained
// by external collaborators.
type User struct {
	ID        uuid.UUID `json:"id"`
	Plan      string    `json:"plan"`
	KYCStatus string    `json:"kyc_status"`
	CreatedAt time.Time `json:"created_at"`
}
