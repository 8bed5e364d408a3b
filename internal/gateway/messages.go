package gateway

import (
	"context"
	"errors"
	"net/url"

	"github.com/TvogInc/ConnectHub/pkg/domain"
)

const messageSelect = "*,sender:user_profiles!messages_sender_id_fkey(*)"

// ErrMessageTarget is returned when a message does not name exactly one
// of receiver or group.
var ErrMessageTarget = errors.New("message must target exactly one of receiver or group")

// OutgoingMessage is a message insert. Exactly one of ReceiverID and
// GroupID must be set.
type OutgoingMessage struct {
	Content    string           `json:"content"`
	ReceiverID string           `json:"receiver_id,omitempty"`
	GroupID    string           `json:"group_id,omitempty"`
	MediaURL   string           `json:"media_url,omitempty"`
	MediaType  domain.MediaType `json:"media_type,omitempty"`
}

// FetchDirectMessages returns the full direct history between the two
// users, either direction, ascending by creation time. Group messages
// are excluded by the null group filter.
func (c *Client) FetchDirectMessages(ctx context.Context, userID, otherUserID string) ([]domain.Message, error) {
	query := url.Values{}
	query.Set("select", messageSelect)
	query.Set("group_id", "is.null")
	query.Set("or", "(and(sender_id.eq."+userID+",receiver_id.eq."+otherUserID+"),"+
		"and(sender_id.eq."+otherUserID+",receiver_id.eq."+userID+"))")
	query.Set("order", "created_at.asc")
	var messages []domain.Message
	if err := c.get(ctx, "messages", query, false, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// FetchGroupMessages returns the full history of a group, ascending by
// creation time.
func (c *Client) FetchGroupMessages(ctx context.Context, groupID string) ([]domain.Message, error) {
	query := url.Values{}
	query.Set("select", messageSelect)
	query.Set("group_id", "eq."+groupID)
	query.Set("order", "created_at.asc")
	var messages []domain.Message
	if err := c.get(ctx, "messages", query, false, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage inserts a single message row. The sender is stamped by the
// store from the session. Best-effort: there is no delivery guarantee
// beyond the insert itself.
func (c *Client) SendMessage(ctx context.Context, msg OutgoingMessage) error {
	if (msg.ReceiverID == "") == (msg.GroupID == "") {
		return ErrMessageTarget
	}
	return c.insert(ctx, "messages", msg, nil, nil)
}
