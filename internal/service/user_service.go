package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

type UserService interface {
	// Create upserts the profile and provisions a trial subscription for new
	// users.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	ledger   LedgerService
	logger   zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, ledger LedgerService, logger zerolog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		ledger:   ledger,
		logger:   logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, u *model.User) (*model.User, error) {
	created, err := s.userRepo.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	// ProvisionTrial is a no-op for returning users with a subscription row.
	if err := s.ledger.ProvisionTrial(ctx, created.UserID); err != nil {
		s.logger.Error().Err(err).Str("user_id", created.UserID).Msg("Failed to provision trial for new user")
		return nil, err
	}
	return created, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
