package servers

import (
	"context"

	"github.com/pkg/errors"
)

// ErrUnreachable is returned when server credentials do not pass the
// pre-persist connection check.
var ErrUnreachable = errors.New("panel is unreachable or rejected the credentials")

type Service struct {
	storage Storage
	checker ConnectionChecker
}

func NewService(storage Storage, checker ConnectionChecker) *Service {
	return &Service{
		storage: storage,
		checker: checker,
	}
}

// CreateServer validates the credentials against the live panel before
// persisting them, so admins find out about typos immediately instead
// of at the first approval.
func (s *Service) CreateServer(ctx context.Context, server Server) (*Server, error) {
	if !s.checker.CheckConnection(ctx, server.BaseURL, server.Username, server.Password) {
		return nil, ErrUnreachable
	}

	created, err := s.storage.CreateServer(ctx, server)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create server in storage")
	}
	return created, nil
}

func (s *Service) GetServer(ctx context.Context, serverID int64) (*Server, error) {
	server, err := s.storage.GetServer(ctx, GetCriteria{ID: &serverID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get server from storage")
	}
	return server, nil
}

func (s *Service) ListServers(ctx context.Context) ([]*Server, error) {
	list, err := s.storage.ListServers(ctx, ListCriteria{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list servers from storage")
	}
	return list, nil
}

func (s *Service) DeleteServer(ctx context.Context, serverID int64) error {
	if err := s.storage.DeleteServer(ctx, serverID); err != nil {
		return errors.Wrap(err, "failed to delete server from storage")
	}
	return nil
}
