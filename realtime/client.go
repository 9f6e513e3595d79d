package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lenshareapp/inbox/session"
	"github.com/lenshareapp/inbox/types"
)

const (
	channelInbound = "inbound"
	channelStatus  = "status"
	channelTyping  = "typing"

	defaultReconnectDelay = 5 * time.Second
	profileLookupTimeout  = 2 * time.Second
)

type ConnState string

const (
	ConnDisconnected ConnState = "disconnected"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnError        ConnState = "error"
)

// ProfileResolver names remote typers. Lookups are best-effort; a failure
// must not block delivery of the typing event.
type ProfileResolver interface {
	Profile(ctx context.Context, userID string) (types.User, error)
}

type Config struct {
	Feed     Feed
	Session  *session.Session
	Profiles ProfileResolver
	Logger   *slog.Logger

	// ReconnectDelay is the fixed wait before an automatic retry after a
	// failed connect. Zero means the 5s default.
	ReconnectDelay time.Duration

	OnMessage      func(MessageRow)
	OnStatusUpdate func(StatusUpdate)
	OnTyping       func(types.TypingState)
	OnConnChange   func(ConnState, error)
}

// Client maintains the three live channels of a signed-in session:
// messages addressed to the user (inserts), status changes on messages the
// user sent (updates), and typing-indicator rows for the open conversation.
type Client struct {
	cfg Config

	mu         sync.Mutex
	state      ConnState
	lastErr    error
	handles    []Handle
	typing     Handle
	openConvID string
	retry      *time.Timer
	closed     bool
}

func New(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{cfg: cfg, state: ConnDisconnected}
}

func (c *Client) State() (ConnState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Connect opens all channels for the session's user, plus the typing channel
// when openConversationID is set. It returns once every channel is
// subscribed. On failure everything opened so far is torn down, the error is
// surfaced, and a retry is scheduled after the reconnect delay; REST-based
// functionality keeps working in the meantime.
func (c *Client) Connect(ctx context.Context, openConversationID string) error {
	if c.cfg.Session.Expired() {
		return session.ErrExpiredToken
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("realtime client closed")
	}
	c.stopRetryLocked()
	c.teardownLocked()
	c.openConvID = openConversationID
	c.setStateLocked(ConnConnecting, nil)
	c.mu.Unlock()

	userID := c.cfg.Session.UserID()

	if err := c.connect(ctx, userID, openConversationID); err != nil {
		connectFailuresTotal.Inc()

		c.mu.Lock()
		c.teardownLocked()
		c.setStateLocked(ConnError, err)
		c.scheduleRetryLocked()
		c.mu.Unlock()

		return fmt.Errorf("connect realtime channels: %w", err)
	}

	connectsTotal.Inc()

	c.mu.Lock()
	c.setStateLocked(ConnConnected, nil)
	c.mu.Unlock()

	return nil
}

func (c *Client) connect(ctx context.Context, userID, openConversationID string) error {
	inbound, err := c.cfg.Feed.Subscribe(ctx, Subscription{
		Table:  TableMessages,
		Column: ColumnToUserID,
		Value:  userID,
		Types:  []ChangeType{ChangeInsert},
	}, c.handleInbound)
	if err != nil {
		return fmt.Errorf("subscribe inbound messages: %w", err)
	}

	c.mu.Lock()
	c.handles = append(c.handles, inbound)
	c.mu.Unlock()

	status, err := c.cfg.Feed.Subscribe(ctx, Subscription{
		Table:  TableMessages,
		Column: ColumnFromUserID,
		Value:  userID,
		Types:  []ChangeType{ChangeUpdate},
	}, c.handleStatus)
	if err != nil {
		return fmt.Errorf("subscribe message status: %w", err)
	}

	c.mu.Lock()
	c.handles = append(c.handles, status)
	c.mu.Unlock()

	if openConversationID != "" {
		typing, err := c.cfg.Feed.Subscribe(ctx, Subscription{
			Table:  TableTypingIndicators,
			Column: ColumnConversationID,
			Value:  openConversationID,
		}, c.handleTyping)
		if err != nil {
			return fmt.Errorf("subscribe typing indicators: %w", err)
		}

		c.mu.Lock()
		c.typing = typing
		c.mu.Unlock()
	}

	return nil
}

// SetOpenConversation swaps the typing channel over to another conversation
// without touching the two user-scoped channels. An empty id just closes it.
func (c *Client) SetOpenConversation(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	if c.typing != nil {
		if err := c.typing.Unsubscribe(); err != nil {
			c.cfg.Logger.Error("unsubscribe typing channel", "error", err)
		}
		c.typing = nil
	}
	c.openConvID = conversationID
	connected := c.state == ConnConnected
	c.mu.Unlock()

	if conversationID == "" || !connected {
		return nil
	}

	typing, err := c.cfg.Feed.Subscribe(ctx, Subscription{
		Table:  TableTypingIndicators,
		Column: ColumnConversationID,
		Value:  conversationID,
	}, c.handleTyping)
	if err != nil {
		return fmt.Errorf("subscribe typing indicators: %w", err)
	}

	c.mu.Lock()
	c.typing = typing
	c.mu.Unlock()

	return nil
}

// Disconnect tears down every open channel. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopRetryLocked()
	c.teardownLocked()
	c.setStateLocked(ConnDisconnected, nil)
	c.mu.Unlock()
}

// Close disconnects and prevents any further retries.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopRetryLocked()
	c.teardownLocked()
	c.setStateLocked(ConnDisconnected, nil)
	c.mu.Unlock()
}

// Reconnect re-establishes the channels with the same parameters. Used for
// manual retry from the connection indicator and for the automatic recovery
// path; errors are reported through OnConnChange and the next retry.
func (c *Client) Reconnect() {
	c.mu.Lock()
	openConvID := c.openConvID
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}

	reconnectsTotal.Inc()

	if err := c.Connect(context.Background(), openConvID); err != nil {
		c.cfg.Logger.Error("realtime reconnect", "error", err)
	}
}

// SetTyping writes the caller's typing row: an upsert while composing,
// a delete when stopped.
func (c *Client) SetTyping(ctx context.Context, conversationID string, isTyping bool) error {
	row := TypingRow{
		ConversationID: conversationID,
		UserID:         c.cfg.Session.UserID(),
		IsTyping:       isTyping,
		LastActivity:   time.Now(),
	}

	var (
		env Envelope
		err error
	)
	if isTyping {
		env, err = NewEnvelope(TableTypingIndicators, ChangeUpdate, nil, row)
	} else {
		env, err = NewEnvelope(TableTypingIndicators, ChangeDelete, row, nil)
	}
	if err != nil {
		return err
	}

	if err := c.cfg.Feed.Publish(ctx, TableTypingIndicators, ColumnConversationID, conversationID, env); err != nil {
		return fmt.Errorf("publish typing row: %w", err)
	}
	return nil
}

// PublishStatus writes a delivery/read transition on an inbound message so
// the sender's status channel picks it up.
func (c *Client) PublishStatus(ctx context.Context, row MessageRow) error {
	env, err := NewEnvelope(TableMessages, ChangeUpdate, nil, row)
	if err != nil {
		return err
	}

	if err := c.cfg.Feed.Publish(ctx, TableMessages, ColumnFromUserID, row.FromUserID, env); err != nil {
		return fmt.Errorf("publish message status: %w", err)
	}
	return nil
}

func (c *Client) handleInbound(env Envelope) {
	feedEventsTotal.WithLabelValues(channelInbound).Inc()

	var row MessageRow
	if err := env.DecodeNew(&row); err != nil {
		c.cfg.Logger.Error("decode inbound message event", "error", err)
		return
	}

	if c.cfg.OnMessage != nil {
		c.cfg.OnMessage(row)
	}
}

func (c *Client) handleStatus(env Envelope) {
	feedEventsTotal.WithLabelValues(channelStatus).Inc()

	var row MessageRow
	if err := env.DecodeNew(&row); err != nil {
		c.cfg.Logger.Error("decode message status event", "error", err)
		return
	}

	if row.Status == "" || c.cfg.OnStatusUpdate == nil {
		return
	}

	updatedAt := time.Now()
	if row.UpdatedAt != nil {
		updatedAt = *row.UpdatedAt
	}

	c.cfg.OnStatusUpdate(StatusUpdate{
		MessageID: row.ID,
		Status:    row.Status,
		UpdatedAt: updatedAt,
	})
}

func (c *Client) handleTyping(env Envelope) {
	feedEventsTotal.WithLabelValues(channelTyping).Inc()

	var row TypingRow
	switch env.Type {
	case ChangeInsert, ChangeUpdate:
		if err := env.DecodeNew(&row); err != nil {
			c.cfg.Logger.Error("decode typing event", "error", err)
			return
		}
	case ChangeDelete:
		if err := env.DecodeOld(&row); err != nil {
			c.cfg.Logger.Error("decode typing delete event", "error", err)
			return
		}
		row.IsTyping = false
	default:
		return
	}

	// Own typing rows echo back on the conversation channel; skip them.
	if row.UserID == c.cfg.Session.UserID() {
		return
	}

	if c.cfg.OnTyping == nil {
		return
	}

	c.cfg.OnTyping(types.TypingState{
		ConversationID: row.ConversationID,
		UserID:         row.UserID,
		DisplayName:    c.resolveName(row.UserID),
		IsTyping:       row.IsTyping,
		LastActivity:   row.LastActivity,
	})
}

func (c *Client) resolveName(userID string) string {
	if c.cfg.Profiles == nil {
		return "unknown"
	}

	ctx, cancel := context.WithTimeout(context.Background(), profileLookupTimeout)
	defer cancel()

	user, err := c.cfg.Profiles.Profile(ctx, userID)
	if err != nil || user.DisplayName == "" {
		if err != nil {
			c.cfg.Logger.Error("resolve typer profile", "user_id", userID, "error", err)
		}
		return "unknown"
	}

	return user.DisplayName
}

func (c *Client) setStateLocked(state ConnState, err error) {
	if c.state == state && err == nil && c.lastErr == nil {
		return
	}
	c.state = state
	c.lastErr = err
	if c.cfg.OnConnChange != nil {
		go c.cfg.OnConnChange(state, err)
	}
}

func (c *Client) teardownLocked() {
	for _, h := range c.handles {
		if err := h.Unsubscribe(); err != nil {
			c.cfg.Logger.Error("unsubscribe channel", "error", err)
		}
	}
	c.handles = nil

	if c.typing != nil {
		if err := c.typing.Unsubscribe(); err != nil {
			c.cfg.Logger.Error("unsubscribe typing channel", "error", err)
		}
		c.typing = nil
	}
}

func (c *Client) scheduleRetryLocked() {
	if c.closed || c.retry != nil {
		return
	}

	c.retry = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		c.retry = nil
		c.mu.Unlock()

		c.Reconnect()
	})
}

func (c *Client) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}
