package domain

import "time"

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

type GroupRole string

const (
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaFile  MediaType = "file"
)

type CallStatus string

const (
	CallCalling  CallStatus = "calling"
	CallActive   CallStatus = "active"
	CallEnded    CallStatus = "ended"
	CallDeclined CallStatus = "declined"
	CallMissed   CallStatus = "missed"
)

type ConversationKind string

const (
	ConversationDirect ConversationKind = "direct"
	ConversationGroup  ConversationKind = "group"
)

// AuthUser is the identity derived from the hosted store's auth session.
type AuthUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// UserProfile is the public identity row created at registration.
// Immutable from this client's perspective.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Connection is a directed row materializing an undirected social edge.
// The store enforces at most one non-blocked row per unordered pair.
type Connection struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requester_id"`
	ReceiverID  string           `json:"receiver_id"`
	Status      ConnectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Requester   *UserProfile     `json:"requester,omitempty"`
	Receiver    *UserProfile     `json:"receiver,omitempty"`
}

// Other returns the endpoint profile that is not userID.
func (c Connection) Other(userID string) *UserProfile {
	if c.RequesterID == userID {
		return c.Receiver
	}
	return c.Requester
}

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GroupMember struct {
	ID       string       `json:"id,omitempty"`
	GroupID  string       `json:"group_id"`
	UserID   string       `json:"user_id"`
	Role     GroupRole    `json:"role"`
	JoinedAt time.Time    `json:"joined_at,omitzero"`
	User     *UserProfile `json:"user,omitempty"`
}

// Message is a chat message. Exactly one of ReceiverID/GroupID is set,
// determining whether it belongs to a direct or a group conversation.
type Message struct {
	ID         string       `json:"id"`
	SenderID   string       `json:"sender_id"`
	ReceiverID string       `json:"receiver_id,omitempty"`
	GroupID    string       `json:"group_id,omitempty"`
	Content    string       `json:"content"`
	MediaURL   string       `json:"media_url,omitempty"`
	MediaType  MediaType    `json:"media_type,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Sender     *UserProfile `json:"sender,omitempty"`
}

// IsDirect reports whether the message belongs to a direct conversation.
func (m Message) IsDirect() bool {
	return m.GroupID == ""
}

type VideoCall struct {
	ID            string           `json:"id"`
	CallerID      string           `json:"caller_id"`
	ReceiverID    string           `json:"receiver_id"`
	Status        CallStatus       `json:"status"`
	Offer         map[string]any   `json:"offer,omitempty"`
	Answer        map[string]any   `json:"answer,omitempty"`
	IceCandidates []map[string]any `json:"ice_candidates,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	EndedAt       *time.Time       `json:"ended_at,omitempty"`
	Caller        *UserProfile     `json:"caller,omitempty"`
	Receiver      *UserProfile     `json:"receiver,omitempty"`
}

// ChatConversation is the unified view-model over direct and group chats.
// Derived on every refresh cycle and never persisted; for a direct
// conversation ID is the other user's id, for a group it is the group id.
type ChatConversation struct {
	ID              string           `json:"id"`
	Kind            ConversationKind `json:"kind"`
	Name            string           `json:"name"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	LastMessage     string           `json:"last_message,omitempty"`
	LastMessageTime *time.Time       `json:"last_message_time,omitempty"`
	UnreadCount     int              `json:"unread_count,omitempty"`
	IsOnline        bool             `json:"is_online,omitempty"`
}
