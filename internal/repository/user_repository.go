package repository

import (
	"context"

	"github.com/honeynil/TrustPay/internal/models"
)

//go:generate mockgen -destination=mocks/mock_user_repository.go -package=mocks github.com/honeynil/TrustPay/internal/repository UserRepository

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUniqueLink(ctx context.Context, link string) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error)
}
