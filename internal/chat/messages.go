package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TvogInc/ConnectHub/internal/gateway"
	"github.com/TvogInc/ConnectHub/internal/media"
	"github.com/TvogInc/ConnectHub/internal/poll"
	"github.com/TvogInc/ConnectHub/internal/session"
	"github.com/TvogInc/ConnectHub/pkg/domain"
)

// ErrNoConversation is returned by Send when nothing is selected.
var ErrNoConversation = errors.New("no conversation selected")

// ErrNoMediaStore is returned by SendAttachment when attachment storage
// was never wired in.
var ErrNoMediaStore = errors.New("no media store configured")

// MessageBackend is the slice of the remote gateway the sync loop needs.
type MessageBackend interface {
	FetchDirectMessages(ctx context.Context, userID, otherUserID string) ([]domain.Message, error)
	FetchGroupMessages(ctx context.Context, groupID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, msg gateway.OutgoingMessage) error
}

// MessageSync keeps the selected conversation's messages in step with
// the store. Two states: idle (nothing selected, no polling) and polling
// (immediate fetch on selection, then one per interval). Every fetch
// replaces the full history; the store returns messages ascending by
// creation time and no client-side re-sorting happens.
//
// Each fetch carries a generation token. Selecting a new conversation
// bumps the generation, so an in-flight fetch for the abandoned one can
// resolve late without overwriting the current display.
type MessageSync struct {
	backend  MessageBackend
	session  *session.Context
	interval time.Duration
	publish  func(domain.ChatConversation, []domain.Message)
	media    media.Store

	gen atomic.Uint64

	mu      sync.Mutex
	current *domain.ChatConversation
	sub     *poll.Subscription
}

// NewMessageSync constructs an idle sync loop publishing every fetched
// history to publish.
func NewMessageSync(backend MessageBackend, sess *session.Context, interval time.Duration, publish func(domain.ChatConversation, []domain.Message)) *MessageSync {
	return &MessageSync{
		backend:  backend,
		session:  sess,
		interval: interval,
		publish:  publish,
	}
}

// Select makes conv the polled conversation: the previous interval is
// torn down and a fresh immediate fetch plus interval begins. Selecting
// the already-selected conversation restarts its cycle.
func (s *MessageSync) Select(ctx context.Context, conv domain.ChatConversation) {
	s.mu.Lock()
	gen := s.gen.Add(1)
	old := s.sub
	selected := conv
	s.current = &selected
	s.sub = nil
	s.mu.Unlock()

	// Stopping waits for the old loop, which may itself be taking the
	// lock inside refresh, so teardown happens outside it.
	if old != nil {
		old.Stop()
	}
	sub := poll.Start(ctx, "messages", s.interval, s.refresh)
	s.mu.Lock()
	if s.gen.Load() != gen {
		// A Clear or a newer Select landed while the loop was starting;
		// the slot is theirs now.
		s.mu.Unlock()
		sub.Stop()
		return
	}
	s.sub = sub
	s.mu.Unlock()
}

// Clear returns the loop to idle. Future polls stop; an in-flight fetch
// is cancelled and its result discarded either way.
func (s *MessageSync) Clear() {
	s.mu.Lock()
	s.gen.Add(1)
	old := s.sub
	s.sub = nil
	s.current = nil
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

// Current returns the selected conversation, or nil when idle.
func (s *MessageSync) Current() *domain.ChatConversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	conv := *s.current
	return &conv
}

// Send writes a message to the selected conversation, then triggers an
// immediate out-of-band re-fetch. The sent message is not appended
// locally; it becomes visible when a fetch returns it.
func (s *MessageSync) Send(ctx context.Context, content string) error {
	return s.send(ctx, content, "", "")
}

// SendMedia is Send with an attachment reference.
func (s *MessageSync) SendMedia(ctx context.Context, content, mediaURL string, mediaType domain.MediaType) error {
	return s.send(ctx, content, mediaURL, mediaType)
}

// AttachMediaStore enables SendAttachment uploads through store. Wire
// it during setup, before the loop is shared across goroutines.
func (s *MessageSync) AttachMediaStore(store media.Store) {
	s.media = store
}

// SendAttachment uploads the attachment to the media store, then sends
// a message carrying its URL and media type to the selected
// conversation. The selection is checked before uploading so a stray
// call with nothing selected does not leave an orphaned object behind.
func (s *MessageSync) SendAttachment(ctx context.Context, content string, r io.Reader, size int64, contentType string) error {
	if s.media == nil {
		return ErrNoMediaStore
	}
	if s.Current() == nil {
		return ErrNoConversation
	}
	mediaURL, mediaType, err := media.Upload(ctx, s.media, r, size, contentType)
	if err != nil {
		return err
	}
	return s.send(ctx, content, mediaURL, mediaType)
}

func (s *MessageSync) send(ctx context.Context, content, mediaURL string, mediaType domain.MediaType) error {
	conv := s.Current()
	if conv == nil {
		return ErrNoConversation
	}
	msg := gateway.OutgoingMessage{
		Content:   content,
		MediaURL:  mediaURL,
		MediaType: mediaType,
	}
	switch conv.Kind {
	case domain.ConversationGroup:
		msg.GroupID = conv.ID
	default:
		msg.ReceiverID = conv.ID
	}
	if err := s.backend.SendMessage(ctx, msg); err != nil {
		return err
	}
	// The write landed; a failed refresh here just means the message
	// shows up on the next tick instead.
	if err := s.refresh(ctx); err != nil {
		slog.Warn("refresh after send failed", "error", err)
	}
	return nil
}

func (s *MessageSync) refresh(ctx context.Context) error {
	s.mu.Lock()
	conv := s.current
	gen := s.gen.Load()
	s.mu.Unlock()
	if conv == nil {
		return nil
	}
	user := s.session.Current()
	if user == nil {
		return nil
	}

	var (
		messages []domain.Message
		err      error
	)
	switch conv.Kind {
	case domain.ConversationGroup:
		messages, err = s.backend.FetchGroupMessages(ctx, conv.ID)
	default:
		messages, err = s.backend.FetchDirectMessages(ctx, user.ID, conv.ID)
	}
	if err != nil {
		return err
	}
	if s.gen.Load() != gen {
		// Selection changed while the fetch was in flight; this result
		// belongs to a conversation nobody is looking at anymore.
		return nil
	}
	s.publish(*conv, messages)
	return nil
}
