package inbox

import (
	"context"
	"fmt"
	"sort"

	"github.com/lenshareapp/inbox/types"
)

// Open selects a conversation: fetches its detail through the endpoint its
// domain tag routes to, makes it the open conversation (unread forced to
// zero), retargets the typing channel, and acknowledges the inbound messages
// as delivered and read. The acks are best-effort and never block the detail
// from rendering.
func (s *Service) Open(ctx context.Context, conversationID string) (types.ConversationDetail, error) {
	conv, ok := s.Conversation(conversationID)
	if !ok {
		return types.ConversationDetail{}, ErrConversationNotFound
	}

	var (
		detail types.ConversationDetail
		err    error
	)
	switch conv.Domain {
	case types.DomainGig:
		detail, err = s.gig.Conversation(ctx, conversationID)
	case types.DomainMarketplace:
		detail, err = s.market.Conversation(ctx, conversationID)
	default:
		return types.ConversationDetail{}, ErrConversationNotFound
	}
	if err != nil {
		return types.ConversationDetail{}, fmt.Errorf("fetch conversation detail: %w", err)
	}

	// The display invariant holds regardless of what order the endpoint
	// returned rows in.
	sort.SliceStable(detail.Messages, func(i, j int) bool {
		return detail.Messages[i].SentAt.Before(detail.Messages[j].SentAt)
	})
	detail.UnreadCount = 0

	s.mu.Lock()
	s.openID = conversationID
	d := detail
	s.detail = &d
	clear(s.typing)
	s.typingActive = false
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations[i].UnreadCount = 0
		}
	}
	s.updateUnreadGaugeLocked()
	s.mu.Unlock()

	if s.channel != nil {
		if err := s.channel.SetOpenConversation(ctx, conversationID); err != nil {
			s.logger.Error("retarget typing channel", "conversation_id", conversationID, "error", err)
		}
	}

	s.markConversationSeen(conv.Domain, detail)

	return detail, nil
}

// CloseConversation deselects the open conversation and closes its typing
// channel.
func (s *Service) CloseConversation(ctx context.Context) {
	s.stopTyping()

	s.mu.Lock()
	s.openID = ""
	s.detail = nil
	clear(s.typing)
	s.mu.Unlock()

	if s.channel != nil {
		if err := s.channel.SetOpenConversation(ctx, ""); err != nil {
			s.logger.Error("close typing channel", "error", err)
		}
	}
}
