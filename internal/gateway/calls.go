package gateway

import (
	"context"
	"net/url"
	"time"

	"github.com/TvogInc/ConnectHub/pkg/domain"
)

const callSelect = "*," +
	"caller:user_profiles!video_calls_caller_id_fkey(*)," +
	"receiver:user_profiles!video_calls_receiver_id_fkey(*)"

// InitiateCall inserts a call row in the calling state and returns it
// with both participant profiles joined. No signaling is exchanged; the
// offer payload is stored opaquely.
func (c *Client) InitiateCall(ctx context.Context, receiverID string, offer map[string]any) (domain.VideoCall, error) {
	body := map[string]any{
		"receiver_id": receiverID,
		"offer":       offer,
		"status":      domain.CallCalling,
	}
	query := url.Values{}
	query.Set("select", callSelect)
	var call domain.VideoCall
	if err := c.insert(ctx, "video_calls", body, query, &call); err != nil {
		return domain.VideoCall{}, err
	}
	return call, nil
}

// AnswerCall stores the answer payload and moves the call to active.
func (c *Client) AnswerCall(ctx context.Context, callID string, answer map[string]any) error {
	query := url.Values{}
	query.Set("id", "eq."+callID)
	body := map[string]any{
		"answer": answer,
		"status": domain.CallActive,
	}
	return c.update(ctx, "video_calls", query, body)
}

// DeclineCall marks a ringing call declined.
func (c *Client) DeclineCall(ctx context.Context, callID string) error {
	query := url.Values{}
	query.Set("id", "eq."+callID)
	body := map[string]any{"status": domain.CallDeclined}
	return c.update(ctx, "video_calls", query, body)
}

// EndCall marks the call ended and stamps ended_at.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	query := url.Values{}
	query.Set("id", "eq."+callID)
	body := map[string]any{
		"status":   domain.CallEnded,
		"ended_at": time.Now().UTC().Format(time.RFC3339),
	}
	return c.update(ctx, "video_calls", query, body)
}

// FetchActiveCall returns the most recent calling-or-active call that
// involves userID, or nil when there is none.
func (c *Client) FetchActiveCall(ctx context.Context, userID string) (*domain.VideoCall, error) {
	query := url.Values{}
	query.Set("select", callSelect)
	query.Set("or", "(caller_id.eq."+userID+",receiver_id.eq."+userID+")")
	query.Set("status", "in.(calling,active)")
	query.Set("order", "started_at.desc")
	query.Set("limit", "1")
	var call domain.VideoCall
	if err := c.get(ctx, "video_calls", query, true, &call); err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &call, nil
}
