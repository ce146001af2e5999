package servers

import "context"

type (
	Storage interface {
		CreateServer(ctx context.Context, server Server) (*Server, error)
		GetServer(ctx context.Context, criteria GetCriteria) (*Server, error)
		ListServers(ctx context.Context, criteria ListCriteria) ([]*Server, error)
		DeleteServer(ctx context.Context, serverID int64) error
	}

	// ConnectionChecker validates credentials against the panel before
	// they are persisted.
	ConnectionChecker interface {
		CheckConnection(ctx context.Context, baseURL, username, password string) bool
	}
)
