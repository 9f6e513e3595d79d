package inbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lenshareapp/inbox/id"
	"github.com/lenshareapp/inbox/realtime"
	"github.com/lenshareapp/inbox/session"
	"github.com/lenshareapp/inbox/types"
)

func testSession(t *testing.T, userID string) *session.Session {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	sess, err := session.FromToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return sess
}

type fakeGig struct {
	conversations        func(ctx context.Context, in types.ListConversations) ([]types.Conversation, error)
	conversation         func(ctx context.Context, conversationID string) (types.ConversationDetail, error)
	sendMessage          func(ctx context.Context, in types.SendGigMessage) (types.Message, error)
	markConversationRead func(ctx context.Context, conversationID string) error
	updateConversation   func(ctx context.Context, conversationID string, action types.ConversationAction) error
}

func (f *fakeGig) Conversations(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
	if f.conversations == nil {
		return nil, nil
	}
	return f.conversations(ctx, in)
}

func (f *fakeGig) Conversation(ctx context.Context, conversationID string) (types.ConversationDetail, error) {
	if f.conversation == nil {
		return types.ConversationDetail{}, nil
	}
	return f.conversation(ctx, conversationID)
}

func (f *fakeGig) SendMessage(ctx context.Context, in types.SendGigMessage) (types.Message, error) {
	if f.sendMessage == nil {
		return types.Message{}, nil
	}
	return f.sendMessage(ctx, in)
}

func (f *fakeGig) MarkConversationRead(ctx context.Context, conversationID string) error {
	if f.markConversationRead == nil {
		return nil
	}
	return f.markConversationRead(ctx, conversationID)
}

func (f *fakeGig) UpdateConversation(ctx context.Context, conversationID string, action types.ConversationAction) error {
	if f.updateConversation == nil {
		return nil
	}
	return f.updateConversation(ctx, conversationID, action)
}

type fakeMarketplace struct {
	conversations      func(ctx context.Context, limit int) ([]types.Conversation, error)
	conversation       func(ctx context.Context, conversationID string) (types.ConversationDetail, error)
	sendMessage        func(ctx context.Context, in types.SendMarketplaceMessage) (types.Message, error)
	deleteConversation func(ctx context.Context, conversationID string) error
}

func (f *fakeMarketplace) Conversations(ctx context.Context, limit int) ([]types.Conversation, error) {
	if f.conversations == nil {
		return nil, nil
	}
	return f.conversations(ctx, limit)
}

func (f *fakeMarketplace) Conversation(ctx context.Context, conversationID string) (types.ConversationDetail, error) {
	if f.conversation == nil {
		return types.ConversationDetail{}, nil
	}
	return f.conversation(ctx, conversationID)
}

func (f *fakeMarketplace) SendMessage(ctx context.Context, in types.SendMarketplaceMessage) (types.Message, error) {
	if f.sendMessage == nil {
		return types.Message{}, nil
	}
	return f.sendMessage(ctx, in)
}

func (f *fakeMarketplace) DeleteConversation(ctx context.Context, conversationID string) error {
	if f.deleteConversation == nil {
		return nil
	}
	return f.deleteConversation(ctx, conversationID)
}

type typingCall struct {
	ConversationID string
	IsTyping       bool
}

type fakeChannel struct {
	mu       sync.Mutex
	open     []string
	typing   []typingCall
	statuses []realtime.MessageRow
}

func (f *fakeChannel) SetOpenConversation(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = append(f.open, conversationID)
	return nil
}

func (f *fakeChannel) SetTyping(ctx context.Context, conversationID string, isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, typingCall{ConversationID: conversationID, IsTyping: isTyping})
	return nil
}

func (f *fakeChannel) PublishStatus(ctx context.Context, row realtime.MessageRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, row)
	return nil
}

func (f *fakeChannel) typingCalls() []typingCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]typingCall, len(f.typing))
	copy(out, f.typing)
	return out
}

func (f *fakeChannel) statusCalls() []realtime.MessageRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]realtime.MessageRow, len(f.statuses))
	copy(out, f.statuses)
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()

	if cfg.Gig == nil {
		cfg.Gig = &fakeGig{}
	}
	if cfg.Marketplace == nil {
		cfg.Marketplace = &fakeMarketplace{}
	}
	if cfg.Session == nil {
		cfg.Session = testSession(t, "user_me")
	}

	svc := New(cfg)
	t.Cleanup(func() {
		_ = svc.Close()
	})
	go func() {
		for range svc.Errs() {
		}
	}()
	return svc
}

func (s *Service) seedConversations(list ...types.Conversation) {
	s.mu.Lock()
	s.replaceConversationsLocked(list)
	s.mu.Unlock()
}

func gigConversation(convID string, lastMessageAt time.Time) types.Conversation {
	at := lastMessageAt
	return types.Conversation{
		ID:            convID,
		Domain:        types.DomainGig,
		Status:        types.ConversationStatusActive,
		StartedAt:     at.Add(-time.Hour),
		LastMessageAt: &at,
		OtherUser:     &types.User{ID: "user_other", DisplayName: "Robin"},
		Gig:           &types.GigContext{GigID: id.New(), Title: "Wedding shoot"},
	}
}

func marketplaceConversation(convID string, lastMessageAt time.Time) types.Conversation {
	at := lastMessageAt
	return types.Conversation{
		ID:            convID,
		Domain:        types.DomainMarketplace,
		Status:        types.ConversationStatusActive,
		StartedAt:     at.Add(-time.Hour),
		LastMessageAt: &at,
		OtherUser:     &types.User{ID: "user_other", DisplayName: "Robin"},
		Marketplace:   &types.MarketplaceContext{ListingID: id.New()},
	}
}
