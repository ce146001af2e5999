package users

import (
	"context"
	"strings"
)

// Service provides business logic for user operations
type Service struct {
	storage Storage
}

// NewService creates a new user service
func NewService(storage Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// GetOrCreateUser returns the user for a Telegram account, registering
// it with the USER role on first contact.
func (s *Service) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*User, error) {
	existing, err := s.storage.GetUser(ctx, GetCriteria{TelegramID: &telegramID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.storage.CreateUser(ctx, User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		Role:       RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PromoteUser changes the role of a user addressed by username. The
// user must have started the bot at least once to exist.
func (s *Service) PromoteUser(ctx context.Context, username, role string) (*User, error) {
	username = strings.TrimPrefix(username, "@")

	existing, err := s.storage.GetUser(ctx, GetCriteria{Username: &username})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	return s.storage.UpdateUser(ctx, GetCriteria{ID: &existing.ID}, UpdateParams{Role: &role})
}

// ListByRole returns all users holding the given role.
func (s *Service) ListByRole(ctx context.Context, role string) ([]*User, error) {
	return s.storage.ListUsers(ctx, ListCriteria{Role: &role})
}
