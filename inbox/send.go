package inbox

import (
	"context"
	"fmt"

	"github.com/lenshareapp/inbox/types"
)

// Send dispatches a message through the endpoint the conversation's domain
// tag routes to. One send per conversation may be in flight; a reentrant
// call is rejected rather than interleaved. On success the typing state is
// cleared and both the open detail and the list are refetched to reconcile;
// the realtime echo may land before or after that refetch, which the store
// absorbs by keying on message id. On failure the caller keeps the composed
// text and retries explicitly.
func (s *Service) Send(ctx context.Context, in types.SendMessage) (types.Message, error) {
	if err := in.Validate(); err != nil {
		return types.Message{}, err
	}

	s.mu.Lock()
	conv, ok := s.conversationLocked(in.ConversationID)
	if !ok {
		s.mu.Unlock()
		return types.Message{}, ErrConversationNotFound
	}
	if conv.OtherUser == nil || conv.OtherUser.ID == "" {
		s.mu.Unlock()
		return types.Message{}, ErrRecipientUnresolved
	}
	if s.sending[in.ConversationID] {
		s.mu.Unlock()
		return types.Message{}, ErrSendInFlight
	}
	s.sending[in.ConversationID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sending, in.ConversationID)
		s.mu.Unlock()
	}()

	msg, err := s.dispatch(ctx, conv, in)
	sendsTotal.WithLabelValues(conv.Domain.String()).Inc()
	if err != nil {
		sendFailuresTotal.WithLabelValues(conv.Domain.String()).Inc()
		return types.Message{}, err
	}

	s.stopTyping()

	if err := s.reconcile(ctx, conv); err != nil {
		s.logger.Error("reconcile after send", "conversation_id", conv.ID, "error", err)
	}

	return msg, nil
}

func (s *Service) dispatch(ctx context.Context, conv types.Conversation, in types.SendMessage) (types.Message, error) {
	switch conv.Domain {
	case types.DomainGig:
		if conv.Gig == nil {
			return types.Message{}, fmt.Errorf("conversation %s is missing its gig context", conv.ID)
		}
		msg, err := s.gig.SendMessage(ctx, types.SendGigMessage{
			GigID:       conv.Gig.GigID,
			ToUserID:    conv.OtherUser.ID,
			Body:        in.Body,
			Attachments: in.Attachments,
		})
		if err != nil {
			return types.Message{}, fmt.Errorf("send message: %w", err)
		}
		return msg, nil

	case types.DomainMarketplace:
		if conv.Marketplace == nil {
			return types.Message{}, fmt.Errorf("conversation %s is missing its marketplace context", conv.ID)
		}
		msg, err := s.market.SendMessage(ctx, types.SendMarketplaceMessage{
			ListingID:     conv.Marketplace.ListingID,
			ToUserID:      conv.OtherUser.ID,
			MessageBody:   in.Body,
			OfferID:       conv.Marketplace.OfferID,
			RentalOrderID: conv.Marketplace.RentalOrderID,
			SaleOrderID:   conv.Marketplace.SaleOrderID,
		})
		if err != nil {
			return types.Message{}, fmt.Errorf("send message: %w", err)
		}
		return msg, nil
	}

	return types.Message{}, fmt.Errorf("conversation %s has unknown domain %q", conv.ID, conv.Domain)
}

// reconcile refetches the open detail and the list after a send. The
// realtime channel is the source of truth for pushes; this refetch is the
// consistency net under it.
func (s *Service) reconcile(ctx context.Context, conv types.Conversation) error {
	if s.OpenConversationID() == conv.ID {
		var (
			detail types.ConversationDetail
			err    error
		)
		switch conv.Domain {
		case types.DomainGig:
			detail, err = s.gig.Conversation(ctx, conv.ID)
		case types.DomainMarketplace:
			detail, err = s.market.Conversation(ctx, conv.ID)
		}
		if err != nil {
			return fmt.Errorf("refetch conversation detail: %w", err)
		}

		detail.UnreadCount = 0

		s.mu.Lock()
		if s.openID == conv.ID {
			merged := detail
			if s.detail != nil {
				// Keep anything the echo applied that the refetch
				// has not seen yet.
				for _, m := range s.detail.Messages {
					merged.Messages = insertMessage(merged.Messages, m)
				}
			}
			s.detail = &merged
		}
		s.mu.Unlock()
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return nil
}
