// Package chat holds the two halves of the conversation core: building
// the unified conversation list out of connections and groups, and
// keeping the selected conversation's messages in sync with the store.
package chat

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TvogInc/ConnectHub/internal/poll"
	"github.com/TvogInc/ConnectHub/internal/session"
	"github.com/TvogInc/ConnectHub/pkg/domain"
)

// ConversationBackend is the slice of the remote gateway the builder
// needs.
type ConversationBackend interface {
	FetchAcceptedConnections(ctx context.Context, userID string) ([]domain.Connection, error)
	FetchGroupsForUser(ctx context.Context, userID string) ([]domain.Group, error)
}

// Builder merges accepted connections and group memberships into one
// typed conversation list.
type Builder struct {
	backend ConversationBackend
	session *session.Context
}

// NewBuilder constructs a conversation builder bound to the session.
func NewBuilder(backend ConversationBackend, sess *session.Context) *Builder {
	return &Builder{backend: backend, session: sess}
}

// Build fetches connections and groups concurrently and projects them
// into a fresh conversation list: direct conversations first, then
// groups, in fetch order. The result replaces any previous list
// wholesale; nothing is merged incrementally.
func (b *Builder) Build(ctx context.Context) ([]domain.ChatConversation, error) {
	user := b.session.Current()
	if user == nil {
		return nil, session.ErrNotSignedIn
	}

	var (
		conns  []domain.Connection
		groups []domain.Group
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conns, err = b.backend.FetchAcceptedConnections(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = b.backend.FetchGroupsForUser(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	list := make([]domain.ChatConversation, 0, len(conns)+len(groups))
	for _, conn := range conns {
		list = append(list, directConversation(conn, user.ID))
	}
	for _, group := range groups {
		list = append(list, domain.ChatConversation{
			ID:        group.ID,
			Kind:      domain.ConversationGroup,
			Name:      group.Name,
			AvatarURL: group.AvatarURL,
		})
	}
	return list, nil
}

func directConversation(conn domain.Connection, userID string) domain.ChatConversation {
	otherID := conn.RequesterID
	if conn.RequesterID == userID {
		otherID = conn.ReceiverID
	}
	conv := domain.ChatConversation{
		ID:   otherID,
		Kind: domain.ConversationDirect,
		Name: "Unknown",
		// There is no presence protocol; direct peers are always shown
		// online.
		IsOnline: true,
	}
	if other := conn.Other(userID); other != nil {
		conv.Name = other.Username
		conv.AvatarURL = other.AvatarURL
	}
	return conv
}

// Feed republishes the builder's output on a fixed cadence. Selection
// state lives with the consumer and is keyed by id+kind, so the full
// list replacement never invalidates a selection whose id survives.
type Feed struct {
	builder  *Builder
	interval time.Duration
	publish  func([]domain.ChatConversation)
	sub      *poll.Subscription
}

// NewFeed constructs a feed publishing each rebuilt list to publish.
func NewFeed(builder *Builder, interval time.Duration, publish func([]domain.ChatConversation)) *Feed {
	return &Feed{builder: builder, interval: interval, publish: publish}
}

// Start begins polling. No cycles run before Start or after Stop.
func (f *Feed) Start(ctx context.Context) {
	if f.sub != nil {
		return
	}
	f.sub = poll.Start(ctx, "conversations", f.interval, func(ctx context.Context) error {
		list, err := f.builder.Build(ctx)
		if errors.Is(err, session.ErrNotSignedIn) {
			// No user yet; stay quiet until the session resolves.
			return nil
		}
		if err != nil {
			return err
		}
		f.publish(list)
		return nil
	})
}

// Stop releases the poll subscription.
func (f *Feed) Stop() {
	if f.sub == nil {
		return
	}
	f.sub.Stop()
	f.sub = nil
}
