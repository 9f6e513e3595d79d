package inbox

import (
	"context"
	"fmt"

	"github.com/lenshareapp/inbox/realtime"
	"github.com/lenshareapp/inbox/types"
)

// markConversationSeen runs the read/delivery side effects of viewing a
// conversation: the gig surface has a dedicated mark-read endpoint (the
// marketplace folds it into its detail fetch), and every unread inbound
// message gets a read transition published on the feed so the sender's
// status channel sees it. Safe to call repeatedly; failures are reported on
// the errs channel, never to the viewer.
func (s *Service) markConversationSeen(domain types.Domain, detail types.ConversationDetail) {
	if domain == types.DomainGig {
		conversationID := detail.ID
		s.background(func(ctx context.Context) error {
			if err := s.gig.MarkConversationRead(ctx, conversationID); err != nil {
				return fmt.Errorf("mark conversation read: %w", err)
			}
			return nil
		})
	}

	if s.channel == nil {
		return
	}

	userID := s.sess.UserID()
	for _, msg := range detail.Messages {
		if msg.ToUserID != userID || msg.Status == types.MessageStatusRead {
			continue
		}
		s.publishRead(domain, msg)
	}
}

// ackInbound acknowledges a single message that arrived while its
// conversation was on screen: visible means delivered and read, with no
// separate user action.
func (s *Service) ackInbound(row realtime.MessageRow) {
	if s.channel == nil {
		return
	}
	s.publishRead(row.Domain, row.Message())
}

func (s *Service) publishRead(domain types.Domain, msg types.Message) {
	now := s.now()
	row := realtime.MessageRow{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Domain:         domain,
		FromUserID:     msg.FromUserID,
		ToUserID:       msg.ToUserID,
		Body:           msg.Body,
		Status:         types.MessageStatusRead,
		SentAt:         msg.SentAt,
		ReadAt:         &now,
		UpdatedAt:      &now,
	}

	s.background(func(ctx context.Context) error {
		if err := s.channel.PublishStatus(ctx, row); err != nil {
			return fmt.Errorf("publish read transition: %w", err)
		}
		return nil
	})
}
