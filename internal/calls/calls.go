// Package calls wraps the video-call rows with their linear lifecycle:
// calling → active → ended, with declined as the receiver's early exit.
// No signaling is exchanged; offer and answer payloads are stored
// opaquely and calls never actually connect peers.
package calls

import (
	"context"
	"errors"

	"github.com/TvogInc/ConnectHub/internal/session"
	"github.com/TvogInc/ConnectHub/pkg/domain"
)

var (
	// ErrCallInProgress is returned when initiating while a call is live.
	ErrCallInProgress = errors.New("a call is already in progress")
	// ErrCallNotRinging is returned when answering or declining a call
	// that is not in the calling state.
	ErrCallNotRinging = errors.New("call is not ringing")
)

// Backend is the slice of the remote gateway the call service needs.
type Backend interface {
	InitiateCall(ctx context.Context, receiverID string, offer map[string]any) (domain.VideoCall, error)
	AnswerCall(ctx context.Context, callID string, answer map[string]any) error
	DeclineCall(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string) error
	FetchActiveCall(ctx context.Context, userID string) (*domain.VideoCall, error)
}

// Service validates call transitions before delegating to the store.
type Service struct {
	backend Backend
	session *session.Context
}

// NewService constructs the call service.
func NewService(backend Backend, sess *session.Context) *Service {
	return &Service{backend: backend, session: sess}
}

// Initiate rings receiverID, refusing while another call is live.
func (s *Service) Initiate(ctx context.Context, receiverID string, offer map[string]any) (domain.VideoCall, error) {
	user := s.session.Current()
	if user == nil {
		return domain.VideoCall{}, session.ErrNotSignedIn
	}
	existing, err := s.backend.FetchActiveCall(ctx, user.ID)
	if err != nil {
		return domain.VideoCall{}, err
	}
	if existing != nil {
		return domain.VideoCall{}, ErrCallInProgress
	}
	return s.backend.InitiateCall(ctx, receiverID, offer)
}

// Answer moves a ringing call to active.
func (s *Service) Answer(ctx context.Context, call domain.VideoCall, answer map[string]any) error {
	if s.session.Current() == nil {
		return session.ErrNotSignedIn
	}
	if call.Status != domain.CallCalling {
		return ErrCallNotRinging
	}
	return s.backend.AnswerCall(ctx, call.ID, answer)
}

// Decline rejects a ringing call.
func (s *Service) Decline(ctx context.Context, call domain.VideoCall) error {
	if s.session.Current() == nil {
		return session.ErrNotSignedIn
	}
	if call.Status != domain.CallCalling {
		return ErrCallNotRinging
	}
	return s.backend.DeclineCall(ctx, call.ID)
}

// End terminates a call in any live state and stamps its end time.
func (s *Service) End(ctx context.Context, call domain.VideoCall) error {
	if s.session.Current() == nil {
		return session.ErrNotSignedIn
	}
	return s.backend.EndCall(ctx, call.ID)
}

// Active returns the user's current live call, or nil.
func (s *Service) Active(ctx context.Context) (*domain.VideoCall, error) {
	user := s.session.Current()
	if user == nil {
		return nil, session.ErrNotSignedIn
	}
	return s.backend.FetchActiveCall(ctx, user.ID)
}
