package plans

import (
	"context"
	"testing"

	"tondar-bot/internal/stories/pricing"
)

func testModel() *pricing.Model {
	return &pricing.Model{PricePerGB: 0.5, MaxMonths: 12}
}

type fakeStorage struct {
	created []Plan
}

func (f *fakeStorage) CreatePlan(_ context.Context, plan Plan) (*Plan, error) {
	plan.ID = int64(len(f.created) + 1)
	f.created = append(f.created, plan)
	return &plan, nil
}

func (f *fakeStorage) GetPlan(_ context.Context, criteria GetCriteria) (*Plan, error) {
	for i := range f.created {
		if criteria.ID != nil && f.created[i].ID == *criteria.ID {
			return &f.created[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStorage) ListPlans(_ context.Context, _ ListCriteria) ([]*Plan, error) {
	out := make([]*Plan, 0, len(f.created))
	for i := range f.created {
		out = append(out, &f.created[i])
	}
	return out, nil
}

func (f *fakeStorage) DeletePlan(_ context.Context, _ int64) error { return nil }

func TestCreatePlanKeepsExplicitPrice(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, testModel())

	created, err := svc.CreatePlan(context.Background(), Plan{VolumeGB: 50, DurationDays: 30, MultiUser: 1, Price: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Price != 99 {
		t.Errorf("price = %v, want explicit 99", created.Price)
	}
}

func TestCreatePlanDefaultsPriceFromModel(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, testModel())

	created, err := svc.CreatePlan(context.Background(), Plan{VolumeGB: 50, DurationDays: 30, MultiUser: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Price != 25 {
		t.Errorf("price = %v, want computed 25", created.Price)
	}
}

func TestCreatePlanRejectsOversizedVolume(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, testModel())

	if _, err := svc.CreatePlan(context.Background(), Plan{VolumeGB: 100000, DurationDays: 30, MultiUser: 1}); err == nil {
		t.Fatal("expected pricing validation error")
	}
}

func TestCreatePlanWithoutModelRequiresNothing(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, nil)

	created, err := svc.CreatePlan(context.Background(), Plan{VolumeGB: 50, DurationDays: 30, MultiUser: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Price != 0 {
		t.Errorf("price = %v, want untouched 0", created.Price)
	}
}
