package inbox

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lenshareapp/inbox/id"
	"github.com/lenshareapp/inbox/realtime"
	"github.com/lenshareapp/inbox/types"
)

func (s *Service) setOpen(detail types.ConversationDetail) {
	s.mu.Lock()
	s.openID = detail.ID
	d := detail
	s.detail = &d
	s.mu.Unlock()
}

func TestApplyNewMessage_BumpsAndCounts(t *testing.T) {
	var notified atomic.Int32
	svc := newTestService(t, Config{
		OnNotify: func(conv types.Conversation, msg types.Message) {
			notified.Add(1)
		},
	})

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	oldConv := gigConversation("conv_old", base.Add(-time.Hour))
	newConv := marketplaceConversation("conv_new", base)
	svc.seedConversations(newConv, oldConv)

	msgID := id.New()
	svc.ApplyNewMessage(realtime.MessageRow{
		ID:             msgID,
		ConversationID: "conv_old",
		Domain:         types.DomainGig,
		FromUserID:     "user_other",
		ToUserID:       "user_me",
		Body:           "are you free saturday?",
		Status:         types.MessageStatusSent,
		SentAt:         base.Add(time.Minute),
	})

	got := svc.Conversations()
	if len(got) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(got))
	}
	if got[0].ID != "conv_old" {
		t.Fatalf("expected conv_old first after new message, got %s", got[0].ID)
	}
	if got[0].UnreadCount != 1 {
		t.Fatalf("expected unread 1, got %d", got[0].UnreadCount)
	}
	if got[0].LastMessage == nil || got[0].LastMessage.ID != msgID {
		t.Fatalf("expected last message %s, got %+v", msgID, got[0].LastMessage)
	}
	if got[0].LastMessage.Body != "are you free saturday?" {
		t.Fatalf("unexpected snippet: %q", got[0].LastMessage.Body)
	}
	if n := svc.Unread(); n != 1 {
		t.Fatalf("expected total unread 1, got %d", n)
	}
	if n := notified.Load(); n != 1 {
		t.Fatalf("expected 1 notification, got %d", n)
	}
}

func TestApplyNewMessage_OpenConversationIsRead(t *testing.T) {
	ch := &fakeChannel{}
	svc := newTestService(t, Config{
		Channel: ch,
		OnNotify: func(conv types.Conversation, msg types.Message) {
			t.Error("notified for the open conversation")
		},
	})

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	conv := gigConversation("conv_open", base)
	svc.seedConversations(conv)
	svc.setOpen(types.ConversationDetail{Conversation: conv})

	svc.ApplyNewMessage(realtime.MessageRow{
		ID:             id.New(),
		ConversationID: "conv_open",
		Domain:         types.DomainGig,
		FromUserID:     "user_other",
		ToUserID:       "user_me",
		Body:           "hello",
		Status:         types.MessageStatusSent,
		SentAt:         base.Add(time.Minute),
	})

	detail, ok := svc.Detail()
	if !ok {
		t.Fatal("expected open detail")
	}
	if len(detail.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(detail.Messages))
	}
	if detail.Messages[0].Status != types.MessageStatusRead {
		t.Fatalf("expected message read, got %s", detail.Messages[0].Status)
	}
	if detail.Messages[0].ReadAt == nil {
		t.Fatal("expected ReadAt set")
	}

	got := svc.Conversations()
	if got[0].UnreadCount != 0 {
		t.Fatalf("expected unread 0 for open conversation, got %d", got[0].UnreadCount)
	}

	waitFor(t, func() bool { return len(ch.statusCalls()) == 1 })
	ack := ch.statusCalls()[0]
	if ack.Status != types.MessageStatusRead {
		t.Fatalf("expected read ack, got %s", ack.Status)
	}
}

func TestApplyNewMessage_EchoAfterRefetchIsNoop(t *testing.T) {
	svc := newTestService(t, Config{Channel: &fakeChannel{}})

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	conv := gigConversation("conv_open", base)
	svc.seedConversations(conv)

	msgID := id.New()
	svc.setOpen(types.ConversationDetail{
		Conversation: conv,
		Messages: []types.Message{{
			ID:             msgID,
			ConversationID: "conv_open",
			FromUserID:     "user_other",
			ToUserID:       "user_me",
			Body:           "hello",
			Status:         types.MessageStatusSent,
			SentAt:         base,
		}},
	})

	svc.ApplyNewMessage(realtime.MessageRow{
		ID:             msgID,
		ConversationID: "conv_open",
		Domain:         types.DomainGig,
		FromUserID:     "user_other",
		ToUserID:       "user_me",
		Body:           "hello",
		Status:         types.MessageStatusSent,
		SentAt:         base,
	})

	detail, _ := svc.Detail()
	if len(detail.Messages) != 1 {
		t.Fatalf("expected the echo to dedupe, got %d messages", len(detail.Messages))
	}
	if detail.Messages[0].Status != types.MessageStatusRead {
		t.Fatalf("expected status to advance to read, got %s", detail.Messages[0].Status)
	}
}

func TestApplyNewMessage_UnknownConversationRefreshes(t *testing.T) {
	var fetches atomic.Int32
	gig := &fakeGig{
		conversations: func(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
			fetches.Add(1)
			return nil, nil
		},
	}
	svc := newTestService(t, Config{Gig: gig})

	svc.ApplyNewMessage(realtime.MessageRow{
		ID:             id.New(),
		ConversationID: id.New(),
		Domain:         types.DomainGig,
		FromUserID:     "user_other",
		ToUserID:       "user_me",
		Body:           "first contact",
		Status:         types.MessageStatusSent,
		SentAt:         time.Now(),
	})

	waitFor(t, func() bool { return fetches.Load() >= 1 })
}

func TestApplyStatusUpdate_Monotonic(t *testing.T) {
	svc := newTestService(t, Config{})

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	conv := gigConversation("conv_open", base)
	sentID, readID := id.New(), id.New()
	svc.setOpen(types.ConversationDetail{
		Conversation: conv,
		Messages: []types.Message{
			{ID: sentID, Status: types.MessageStatusSent, SentAt: base},
			{ID: readID, Status: types.MessageStatusRead, SentAt: base},
		},
	})

	svc.ApplyStatusUpdate(realtime.StatusUpdate{MessageID: sentID, Status: types.MessageStatusDelivered, UpdatedAt: base})
	// A delayed "delivered" after "read" must not regress.
	svc.ApplyStatusUpdate(realtime.StatusUpdate{MessageID: readID, Status: types.MessageStatusDelivered, UpdatedAt: base})
	// Unknown ids are dropped silently.
	svc.ApplyStatusUpdate(realtime.StatusUpdate{MessageID: id.New(), Status: types.MessageStatusRead, UpdatedAt: base})

	detail, _ := svc.Detail()
	if got := detail.Messages[0].Status; got != types.MessageStatusDelivered {
		t.Fatalf("expected delivered, got %s", got)
	}
	if got := detail.Messages[1].Status; got != types.MessageStatusRead {
		t.Fatalf("expected read to stick, got %s", got)
	}
}

func TestTypingUsers_ExpiresByTTL(t *testing.T) {
	svc := newTestService(t, Config{TypingTTL: 3 * time.Second})

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.mu.Lock()
	svc.now = func() time.Time { return now }
	svc.mu.Unlock()

	svc.ApplyTyping(types.TypingState{UserID: "user_a", DisplayName: "Robin", IsTyping: true, LastActivity: now})
	svc.ApplyTyping(types.TypingState{UserID: "user_b", DisplayName: "Sam", IsTyping: true, LastActivity: now.Add(-5 * time.Second)})

	got := svc.TypingUsers()
	if len(got) != 1 || got[0].UserID != "user_a" {
		t.Fatalf("expected only user_a typing, got %+v", got)
	}

	// A stopped-typing event clears the entry without waiting for the TTL.
	svc.ApplyTyping(types.TypingState{UserID: "user_a", IsTyping: false})
	if got := svc.TypingUsers(); len(got) != 0 {
		t.Fatalf("expected no typers, got %+v", got)
	}
}

func TestReplaceConversations_OpenForcedToZeroUnread(t *testing.T) {
	svc := newTestService(t, Config{})

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	conv := gigConversation("conv_open", base)
	svc.setOpen(types.ConversationDetail{Conversation: conv})

	stale := conv
	stale.UnreadCount = 4
	svc.seedConversations(stale)

	got := svc.Conversations()
	if got[0].UnreadCount != 0 {
		t.Fatalf("expected open conversation forced to 0 unread, got %d", got[0].UnreadCount)
	}
}

func TestInsertMessage_KeepsSentAtOrder(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	a := types.Message{ID: "a", SentAt: base}
	b := types.Message{ID: "b", SentAt: base.Add(2 * time.Minute)}
	c := types.Message{ID: "c", SentAt: base.Add(time.Minute)}

	msgs := insertMessage(nil, a)
	msgs = insertMessage(msgs, b)
	msgs = insertMessage(msgs, c)

	want := []string{"a", "c", "b"}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, msgs[i].ID)
		}
	}
}
