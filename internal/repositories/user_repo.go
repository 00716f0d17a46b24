package repositories

import (
	"context"

	"github.com/giftmoments/backend/internal/models"
	"github.com/google/uuid"
)

// UserRepo reads the user read-model. Profile management, KYC review and
// plan assignment happen in external collaborators.
type UserRepo struct {
	db DB
}

func NewUserRepo(db DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, plan, kyc_status, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Plan, &u.KYCStatus, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
