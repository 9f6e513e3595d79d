package inbox

import (
	"slices"
	"sort"

	"github.com/lenshareapp/inbox/realtime"
	"github.com/lenshareapp/inbox/types"
)

// replaceConversationsLocked is the full-replace path used after a
// (re)fetch. The fetched payload may still report a server-side unread count
// for the conversation the user is looking at, so the open one is forced
// back to zero.
func (s *Service) replaceConversationsLocked(list []types.Conversation) {
	if s.openID != "" {
		for i := range list {
			if list[i].ID == s.openID {
				list[i].UnreadCount = 0
			}
		}
	}

	s.conversations = list

	conversationsGauge.Set(float64(len(list)))
	s.updateUnreadGaugeLocked()
}

func (s *Service) updateUnreadGaugeLocked() {
	var n int
	for _, c := range s.conversations {
		n += c.UnreadCount
	}
	unreadGauge.Set(float64(n))
}

// ApplyNewMessage folds an inbound message event into the store: append to
// the open message list when it belongs there (implicitly read, since it is
// on screen), and update the matching summary's snippet and unread count.
// The event channel may echo a message the post-send refetch already loaded;
// insertion is keyed on message id, so the duplicate application is a no-op.
func (s *Service) ApplyNewMessage(row realtime.MessageRow) {
	msg := row.Message()

	s.mu.Lock()

	open := s.openID == row.ConversationID

	if open {
		msg.Status = msg.Status.Advance(types.MessageStatusRead)
		if msg.ReadAt == nil {
			now := s.now()
			msg.ReadAt = &now
		}
		if s.detail != nil {
			s.detail.Messages = insertMessage(s.detail.Messages, msg)
		}
	}

	conv, found := s.conversationLocked(row.ConversationID)
	if found {
		for i := range s.conversations {
			if s.conversations[i].ID != row.ConversationID {
				continue
			}
			sentAt := msg.SentAt
			s.conversations[i].LastMessage = &types.LastMessage{
				ID:         msg.ID,
				Body:       msg.Body,
				FromUserID: msg.FromUserID,
				SentAt:     sentAt,
				Read:       open,
			}
			s.conversations[i].LastMessageAt = &sentAt
			if !open {
				s.conversations[i].UnreadCount++
			}
			conv = s.conversations[i]
			break
		}

		sort.SliceStable(s.conversations, func(i, j int) bool {
			return s.conversations[i].Recency().After(s.conversations[j].Recency())
		})
		s.updateUnreadGaugeLocked()
	}

	s.mu.Unlock()

	if !found {
		// First message of a conversation the list has never seen;
		// the next fetch will bring the full summary.
		s.background(s.Refresh)
		return
	}

	if open {
		s.ackInbound(row)
		return
	}

	if s.onNotify != nil {
		s.onNotify(conv, msg)
	}
}

// ApplyStatusUpdate advances the delivery state of a message in the open
// list. The progression is monotonic: a delayed "delivered" arriving after
// "read" leaves the message read. Ids the store does not know are dropped
// silently since the message may belong to a conversation that is not
// loaded.
func (s *Service) ApplyStatusUpdate(u realtime.StatusUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detail == nil {
		return
	}

	for i := range s.detail.Messages {
		m := &s.detail.Messages[i]
		if m.ID != u.MessageID {
			continue
		}

		m.Status = m.Status.Advance(u.Status)
		if m.Status == types.MessageStatusRead && m.ReadAt == nil {
			updatedAt := u.UpdatedAt
			m.ReadAt = &updatedAt
		}
		return
	}
}

// ApplyTyping upserts the typing entry for a remote participant; a
// stopped-typing event clears it.
func (s *Service) ApplyTyping(ts types.TypingState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ts.IsTyping {
		delete(s.typing, ts.UserID)
		return
	}

	if ts.LastActivity.IsZero() {
		ts.LastActivity = s.now()
	}
	s.typing[ts.UserID] = ts
}

// TypingUsers returns who is currently composing in the open conversation.
// Entries whose last activity is older than the TTL are dropped on read,
// which covers a peer's tab closing without a clean stopped-typing event.
func (s *Service) TypingUsers() []types.TypingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.typingTTL)

	var out []types.TypingState
	for userID, ts := range s.typing {
		if ts.LastActivity.Before(cutoff) {
			delete(s.typing, userID)
			continue
		}
		out = append(out, ts)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Detail returns a copy of the open conversation's detail, if any.
func (s *Service) Detail() (types.ConversationDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detail == nil {
		return types.ConversationDetail{}, false
	}

	out := *s.detail
	out.Messages = make([]types.Message, len(s.detail.Messages))
	copy(out.Messages, s.detail.Messages)
	return out, true
}

// insertMessage places m keeping the list non-decreasing by SentAt, ties
// broken by arrival order. A message already present (by id) is not added
// again; only its status may advance.
func insertMessage(msgs []types.Message, m types.Message) []types.Message {
	for i := range msgs {
		if msgs[i].ID != m.ID {
			continue
		}
		msgs[i].Status = msgs[i].Status.Advance(m.Status)
		if msgs[i].ReadAt == nil {
			msgs[i].ReadAt = m.ReadAt
		}
		return msgs
	}

	i := len(msgs)
	for i > 0 && msgs[i-1].SentAt.After(m.SentAt) {
		i--
	}
	return slices.Insert(msgs, i, m)
}
