package gateway

import (
	"context"
	"net/url"
	"time"

	"github.com/TvogInc/ConnectHub/pkg/domain"
)

const connectionSelect = "*," +
	"requester:user_profiles!connections_requester_id_fkey(*)," +
	"receiver:user_profiles!connections_receiver_id_fkey(*)"

// FetchAcceptedConnections returns userID's accepted connections, most
// recently updated first, with both endpoint profiles joined.
func (c *Client) FetchAcceptedConnections(ctx context.Context, userID string) ([]domain.Connection, error) {
	query := url.Values{}
	query.Set("select", connectionSelect)
	query.Set("or", "(requester_id.eq."+userID+",receiver_id.eq."+userID+")")
	query.Set("status", "eq."+string(domain.ConnectionAccepted))
	query.Set("order", "updated_at.desc")
	var conns []domain.Connection
	if err := c.get(ctx, "connections", query, false, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// FetchPendingConnections returns requests awaiting userID's response,
// newest first.
func (c *Client) FetchPendingConnections(ctx context.Context, userID string) ([]domain.Connection, error) {
	query := url.Values{}
	query.Set("select", connectionSelect)
	query.Set("receiver_id", "eq."+userID)
	query.Set("status", "eq."+string(domain.ConnectionPending))
	query.Set("order", "created_at.desc")
	var conns []domain.Connection
	if err := c.get(ctx, "connections", query, false, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// CreateConnectionRequest inserts a pending row towards receiverID.
// The requester side is stamped by the store from the session; the store
// also rejects a duplicate non-terminal row for the pair.
func (c *Client) CreateConnectionRequest(ctx context.Context, receiverID string) error {
	body := map[string]any{
		"receiver_id": receiverID,
		"status":      domain.ConnectionPending,
	}
	return c.insert(ctx, "connections", body, nil, nil)
}

// RespondToConnection resolves a pending request to accepted or blocked.
// The update is restricted to rows still pending, so a request can only
// be resolved once; responding again is a no-op.
func (c *Client) RespondToConnection(ctx context.Context, connectionID string, accept bool) error {
	status := domain.ConnectionBlocked
	if accept {
		status = domain.ConnectionAccepted
	}
	query := url.Values{}
	query.Set("id", "eq."+connectionID)
	query.Set("status", "eq."+string(domain.ConnectionPending))
	body := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	return c.update(ctx, "connections", query, body)
}
