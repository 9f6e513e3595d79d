// Package inbox keeps the client-side view of a user's conversations: the
// merged gig+marketplace list, the open conversation's message history, and
// the ephemeral typing state. The service owns all of that state; the
// realtime client never mutates it directly but feeds typed events into the
// Apply* methods.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nicolasparada/go-errs"

	"github.com/lenshareapp/inbox/realtime"
	"github.com/lenshareapp/inbox/session"
	"github.com/lenshareapp/inbox/types"
)

var (
	// ErrConversationNotFound denotes an id with no entry in the cached
	// list. The domain tag recorded at list-fetch time is authoritative, so
	// an unknown id is a hard miss rather than a cue to probe both domains.
	ErrConversationNotFound = errs.NotFoundError("conversation not found")
	// ErrRecipientUnresolved denotes a send before the counterpart's
	// profile is known.
	ErrRecipientUnresolved = errs.InvalidArgumentError("conversation recipient is not resolved")
	// ErrSendInFlight denotes a reentrant send on a conversation that
	// already has one going.
	ErrSendInFlight = errs.ConflictError("a send is already in flight for this conversation")
)

const (
	defaultListLimit         = 50
	defaultTypingDebounce    = time.Second
	defaultTypingTTL         = 3 * time.Second
	defaultBackgroundTimeout = 15 * time.Second
)

type GigAPI interface {
	Conversations(ctx context.Context, in types.ListConversations) ([]types.Conversation, error)
	Conversation(ctx context.Context, conversationID string) (types.ConversationDetail, error)
	SendMessage(ctx context.Context, in types.SendGigMessage) (types.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string) error
	UpdateConversation(ctx context.Context, conversationID string, action types.ConversationAction) error
}

type MarketplaceAPI interface {
	Conversations(ctx context.Context, limit int) ([]types.Conversation, error)
	Conversation(ctx context.Context, conversationID string) (types.ConversationDetail, error)
	SendMessage(ctx context.Context, in types.SendMarketplaceMessage) (types.Message, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// Channel is the slice of the realtime client the service drives.
// Nil is fine: everything degrades to REST-only behavior.
type Channel interface {
	SetOpenConversation(ctx context.Context, conversationID string) error
	SetTyping(ctx context.Context, conversationID string, isTyping bool) error
	PublishStatus(ctx context.Context, row realtime.MessageRow) error
}

type Config struct {
	Gig         GigAPI
	Marketplace MarketplaceAPI
	Channel     Channel
	Session     *session.Session
	Logger      *slog.Logger

	ListLimit         int
	TypingDebounce    time.Duration
	TypingTTL         time.Duration
	BaseCtx           context.Context
	BackgroundTimeout time.Duration

	// OnNotify fires for a new message on a conversation that is not the
	// open one, after the store is updated.
	OnNotify func(conv types.Conversation, msg types.Message)
}

type Service struct {
	gig     GigAPI
	market  MarketplaceAPI
	channel Channel
	sess    *session.Session
	logger  *slog.Logger

	listLimit      int
	typingDebounce time.Duration
	typingTTL      time.Duration
	onNotify       func(types.Conversation, types.Message)

	baseCtx           context.Context
	backgroundTimeout time.Duration
	wg                sync.WaitGroup
	errs              chan error

	mu            sync.Mutex
	conversations []types.Conversation
	openID        string
	detail        *types.ConversationDetail
	typing        map[string]types.TypingState
	sending       map[string]bool
	typingActive  bool
	typingTimer   *time.Timer
	now           func() time.Time
}

func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = defaultListLimit
	}
	if cfg.TypingDebounce <= 0 {
		cfg.TypingDebounce = defaultTypingDebounce
	}
	if cfg.TypingTTL < cfg.TypingDebounce {
		// A TTL below the debounce window makes remote indicators flicker.
		cfg.TypingTTL = defaultTypingTTL
		if cfg.TypingTTL < cfg.TypingDebounce {
			cfg.TypingTTL = cfg.TypingDebounce
		}
	}
	if cfg.BaseCtx == nil {
		cfg.BaseCtx = context.Background()
	}
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = defaultBackgroundTimeout
	}

	return &Service{
		gig:     cfg.Gig,
		market:  cfg.Marketplace,
		channel: cfg.Channel,
		sess:    cfg.Session,
		logger:  cfg.Logger,

		listLimit:      cfg.ListLimit,
		typingDebounce: cfg.TypingDebounce,
		typingTTL:      cfg.TypingTTL,
		onNotify:       cfg.OnNotify,

		baseCtx:           cfg.BaseCtx,
		backgroundTimeout: cfg.BackgroundTimeout,
		errs:              make(chan error, 1),

		typing:  make(map[string]types.TypingState),
		sending: make(map[string]bool),
		now:     time.Now,
	}
}

// Errs reports background best-effort failures (read acks, typing rows).
func (s *Service) Errs() <-chan error {
	return s.errs
}

func (s *Service) Close() error {
	s.mu.Lock()
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	close(s.errs)
	return nil
}

func (s *Service) background(fn func(ctx context.Context) error) {
	s.wg.Go(func() {
		defer func() {
			if rcv := recover(); rcv != nil {
				select {
				case s.errs <- fmt.Errorf("inbox background panic: %v", rcv):
				default:
				}
			}
		}()

		ctx, cancel := context.WithTimeout(s.baseCtx, s.backgroundTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			select {
			case s.errs <- fmt.Errorf("inbox background error: %w", err):
			default:
			}
		}
	})
}

// Conversations returns a snapshot of the merged list, most recent first.
func (s *Service) Conversations() []types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

func (s *Service) Conversation(conversationID string) (types.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationLocked(conversationID)
}

func (s *Service) conversationLocked(conversationID string) (types.Conversation, bool) {
	for _, c := range s.conversations {
		if c.ID == conversationID {
			return c, true
		}
	}
	return types.Conversation{}, false
}

// OpenConversationID is the live accessor event handlers read at
// event-handling time, so they never act on a stale snapshot of which
// conversation is open.
func (s *Service) OpenConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

// Unread is the total unread count across all conversations.
func (s *Service) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, c := range s.conversations {
		n += c.UnreadCount
	}
	return n
}
