// Package connect implements the social-connection workflow: searching
// for people, sending requests, responding to received ones, and the
// sidebar refresh that keeps both lists current.
package connect

import (
	"context"
	"time"

	"github.com/TvogInc/ConnectHub/internal/poll"
	"github.com/TvogInc/ConnectHub/internal/session"
	"github.com/TvogInc/ConnectHub/pkg/domain"
)

// Backend is the slice of the remote gateway the workflow needs.
type Backend interface {
	SearchProfiles(ctx context.Context, query string) ([]domain.UserProfile, error)
	FetchAcceptedConnections(ctx context.Context, userID string) ([]domain.Connection, error)
	FetchPendingConnections(ctx context.Context, userID string) ([]domain.Connection, error)
	CreateConnectionRequest(ctx context.Context, receiverID string) error
	RespondToConnection(ctx context.Context, connectionID string, accept bool) error
}

// Workflow drives the pending → accepted|blocked lifecycle between two
// users. A connection pair only ever moves forward: a resolved request
// never returns to pending.
type Workflow struct {
	backend Backend
	session *session.Context
}

// NewWorkflow constructs the workflow bound to the session.
func NewWorkflow(backend Backend, sess *session.Context) *Workflow {
	return &Workflow{backend: backend, session: sess}
}

// Search returns candidate profiles for query, excluding the current
// user even when their own name matches.
func (w *Workflow) Search(ctx context.Context, query string) ([]domain.UserProfile, error) {
	user := w.session.Current()
	if user == nil {
		return nil, session.ErrNotSignedIn
	}
	profiles, err := w.backend.SearchProfiles(ctx, query)
	if err != nil {
		return nil, err
	}
	results := profiles[:0]
	for _, p := range profiles {
		if p.ID == user.ID {
			continue
		}
		results = append(results, p)
	}
	return results, nil
}

// Request sends a pending connection request to targetID. The store
// rejects a duplicate while a non-terminal row exists for the pair.
func (w *Workflow) Request(ctx context.Context, targetID string) error {
	if w.session.Current() == nil {
		return session.ErrNotSignedIn
	}
	return w.backend.CreateConnectionRequest(ctx, targetID)
}

// Respond resolves a received pending request. accept moves it to
// accepted, otherwise blocked; both are terminal.
func (w *Workflow) Respond(ctx context.Context, connectionID string, accept bool) error {
	if w.session.Current() == nil {
		return session.ErrNotSignedIn
	}
	return w.backend.RespondToConnection(ctx, connectionID, accept)
}

// Sidebar refreshes the accepted and pending lists on its own cadence,
// independent of message polling. An accepted request surfaces as a new
// conversation purely through this eventual refresh; there is no
// cross-component signal.
type Sidebar struct {
	workflow   *Workflow
	interval   time.Duration
	onAccepted func([]domain.Connection)
	onPending  func([]domain.Connection)
	sub        *poll.Subscription
}

// NewSidebar constructs the sidebar poller with one callback per list.
func NewSidebar(workflow *Workflow, interval time.Duration, onAccepted, onPending func([]domain.Connection)) *Sidebar {
	return &Sidebar{
		workflow:   workflow,
		interval:   interval,
		onAccepted: onAccepted,
		onPending:  onPending,
	}
}

// Start begins polling both lists.
func (s *Sidebar) Start(ctx context.Context) {
	if s.sub != nil {
		return
	}
	s.sub = poll.Start(ctx, "sidebar", s.interval, s.refresh)
}

// Stop releases the poll subscription.
func (s *Sidebar) Stop() {
	if s.sub == nil {
		return
	}
	s.sub.Stop()
	s.sub = nil
}

// Refresh runs one out-of-band cycle, used right after responding to a
// request so the sidebar does not wait a full tick.
func (s *Sidebar) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

func (s *Sidebar) refresh(ctx context.Context) error {
	user := s.workflow.session.Current()
	if user == nil {
		return nil
	}
	accepted, err := s.workflow.backend.FetchAcceptedConnections(ctx, user.ID)
	if err != nil {
		return err
	}
	pending, pendErr := s.workflow.backend.FetchPendingConnections(ctx, user.ID)
	if pendErr != nil {
		// Publish the half that succeeded; the other keeps its
		// last-known-good state until the next tick.
		s.onAccepted(accepted)
		return pendErr
	}
	s.onAccepted(accepted)
	s.onPending(pending)
	return nil
}

// IsTerminal reports whether a connection can no longer transition.
func IsTerminal(status domain.ConnectionStatus) bool {
	return status == domain.ConnectionAccepted || status == domain.ConnectionBlocked
}
