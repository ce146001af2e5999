package plans

import (
	"context"

	"github.com/pkg/errors"

	"tondar-bot/internal/stories/pricing"
)

type Service struct {
	storage Storage
	pricing *pricing.Model
}

// NewService builds the plan service. A nil pricing model disables
// price defaulting and plans must carry an explicit price.
func NewService(storage Storage, pricingModel *pricing.Model) *Service {
	return &Service{storage: storage, pricing: pricingModel}
}

func (s *Service) CreatePlan(ctx context.Context, plan Plan) (*Plan, error) {
	if plan.Price == 0 && s.pricing != nil {
		months := plan.DurationDays / 30
		if months < 1 {
			months = 1
		}
		if err := s.pricing.Validate(plan.VolumeGB, months); err != nil {
			return nil, errors.Wrap(err, "plan does not fit the pricing model")
		}
		plan.Price = s.pricing.Calculate(plan.VolumeGB, months, plan.MultiUser).Total
	}

	created, err := s.storage.CreatePlan(ctx, plan)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create plan in storage")
	}
	return created, nil
}

func (s *Service) GetPlan(ctx context.Context, planID int64) (*Plan, error) {
	plan, err := s.storage.GetPlan(ctx, GetCriteria{ID: &planID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get plan from storage")
	}
	return plan, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	list, err := s.storage.ListPlans(ctx, ListCriteria{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list plans from storage")
	}
	return list, nil
}

func (s *Service) DeletePlan(ctx context.Context, planID int64) error {
	if err := s.storage.DeletePlan(ctx, planID); err != nil {
		return errors.Wrap(err, "failed to delete plan from storage")
	}
	return nil
}
