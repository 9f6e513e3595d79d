package inbox

import (
	"context"
	"fmt"

	"github.com/lenshareapp/inbox/types"
)

// Archive moves a gig conversation out of the active list.
func (s *Service) Archive(ctx context.Context, conversationID string) error {
	return s.updateGigConversation(ctx, conversationID, types.ConversationActionArchive, types.ConversationStatusArchived)
}

// Block stops the counterpart from messaging on a gig conversation.
func (s *Service) Block(ctx context.Context, conversationID string) error {
	return s.updateGigConversation(ctx, conversationID, types.ConversationActionBlock, types.ConversationStatusBlocked)
}

func (s *Service) Unblock(ctx context.Context, conversationID string) error {
	return s.updateGigConversation(ctx, conversationID, types.ConversationActionUnblock, types.ConversationStatusActive)
}

func (s *Service) updateGigConversation(ctx context.Context, conversationID string, action types.ConversationAction, status types.ConversationStatus) error {
	conv, ok := s.Conversation(conversationID)
	if !ok {
		return ErrConversationNotFound
	}
	if conv.Domain != types.DomainGig {
		return fmt.Errorf("conversation %s is not a gig conversation", conversationID)
	}

	if err := s.gig.UpdateConversation(ctx, conversationID, action); err != nil {
		return fmt.Errorf("%s conversation: %w", action, err)
	}

	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations[i].Status = status
			break
		}
	}
	if s.openID == conversationID && s.detail != nil {
		s.detail.Status = status
	}
	s.mu.Unlock()

	return nil
}

// Delete removes a marketplace conversation server-side and drops it from
// the cache. Gig conversations are archived, never deleted.
func (s *Service) Delete(ctx context.Context, conversationID string) error {
	conv, ok := s.Conversation(conversationID)
	if !ok {
		return ErrConversationNotFound
	}
	if conv.Domain != types.DomainMarketplace {
		return fmt.Errorf("conversation %s is not a marketplace conversation", conversationID)
	}

	if err := s.market.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			break
		}
	}
	if s.openID == conversationID {
		s.openID = ""
		s.detail = nil
		clear(s.typing)
		if s.typingTimer != nil {
			s.typingTimer.Stop()
			s.typingTimer = nil
		}
		s.typingActive = false
	}
	conversationsGauge.Set(float64(len(s.conversations)))
	s.updateUnreadGaugeLocked()
	s.mu.Unlock()

	return nil
}
