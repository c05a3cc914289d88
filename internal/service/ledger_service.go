package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/catalog"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ErrQuotaExceeded is returned when an operation would charge a user with no
// image credits remaining.
var ErrQuotaExceeded = errors.New("quota_exceeded")

// LedgerService defines business logic for the subscription/credits ledger.
type LedgerService interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	ProvisionTrial(ctx context.Context, userID string) error
	// ApplyPayment resets the quota for a confirmed payment. Idempotent under
	// webhook redelivery keyed by stripeEventID.
	ApplyPayment(ctx context.Context, userID, planID, billingCycle, status, stripeSubscriptionID, stripeEventID string) (*model.Subscription, error)
	// ConsumeCredit charges one credit, returning the remaining balance.
	// Returns ErrQuotaExceeded when no credits remain.
	ConsumeCredit(ctx context.Context, userID string) (int, error)
	Downgrade(ctx context.Context, userID string) error
	RolloverExpired(ctx context.Context) (int64, error)
}

type ledgerService struct {
	repo            repository.LedgerRepository
	trialPeriodDays int
	now             func() time.Time
	logger          zerolog.Logger
}

// NewLedgerService creates a new LedgerService with a scoped logger.
func NewLedgerService(repo repository.LedgerRepository, trialPeriodDays int, logger zerolog.Logger) LedgerService {
	return &ledgerService{
		repo:            repo,
		trialPeriodDays: trialPeriodDays,
		now:             time.Now,
		logger:          logger.With().Str("service", "LedgerService").Logger(),
	}
}

func (s *ledgerService) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrSubscriptionNotFound) {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		}
		return nil, err
	}
	return sub, nil
}

func (s *ledgerService) ProvisionTrial(ctx context.Context, userID string) error {
	plan, err := catalog.Get(catalog.TrialPlanID)
	if err != nil {
		return fmt.Errorf("resolve trial plan: %w", err)
	}
	if err := s.repo.ProvisionTrial(ctx, userID, plan.ImagesPerMonth, s.trialPeriodDays); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to provision trial subscription")
		return err
	}
	return nil
}

// ApplyPayment resolves the plan's quota and billing period, then hands the
// reset to the repository's event-guarded transaction.
func (s *ledgerService) ApplyPayment(ctx context.Context, userID, planID, billingCycle, status, stripeSubscriptionID, stripeEventID string) (*model.Subscription, error) {
	plan, err := catalog.Get(planID)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Payment references unknown plan")
		return nil, err
	}

	start := s.now()
	var end time.Time
	if billingCycle == model.BillingCycleYearly {
		end = start.AddDate(1, 0, 0)
	} else {
		end = start.AddDate(0, 1, 0)
	}

	sub, err := s.repo.ApplyPayment(ctx, repository.PaymentApplication{
		UserID:               userID,
		PlanID:               planID,
		ImagesTotal:          plan.ImagesPerMonth,
		BillingCycle:         billingCycle,
		PeriodStart:          start,
		PeriodEnd:            end,
		Status:               status,
		StripeSubscriptionID: stripeSubscriptionID,
		StripeEventID:        stripeEventID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan_id", planID).Msg("Failed to apply payment to ledger")
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("plan_id", planID).Int("images_total", sub.ImagesTotal).Msg("Payment applied to ledger")
	return sub, nil
}

func (s *ledgerService) ConsumeCredit(ctx context.Context, userID string) (int, error) {
	remaining, err := s.repo.ConsumeCredit(ctx, userID)
	if errors.Is(err, repository.ErrInsufficientCredits) {
		return 0, fmt.Errorf("charge user %s: %w", userID, ErrQuotaExceeded)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to consume credit")
		return 0, err
	}
	return remaining, nil
}

func (s *ledgerService) Downgrade(ctx context.Context, userID string) error {
	plan, err := catalog.Get(catalog.TrialPlanID)
	if err != nil {
		return fmt.Errorf("resolve trial plan: %w", err)
	}
	if err := s.repo.Downgrade(ctx, userID, plan.ImagesPerMonth, s.trialPeriodDays); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade user")
		return err
	}
	return nil
}

func (s *ledgerService) RolloverExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.RolloverExpired(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to roll over expired subscriptions")
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("Rolled over expired subscription periods")
	}
	return n, nil
}
