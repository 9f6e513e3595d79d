package inbox

import (
	"context"
	"fmt"
	"time"
)

// InputActivity records a keystroke in the open conversation's compose box.
// The first keystroke publishes isTyping=true right away; every keystroke
// restarts the idle timer, and only the timer running out publishes the
// matching isTyping=false. Three quick keystrokes therefore cost exactly one
// publish.
func (s *Service) InputActivity() {
	s.mu.Lock()
	conversationID := s.openID
	if conversationID == "" || s.channel == nil {
		s.mu.Unlock()
		return
	}

	start := !s.typingActive
	s.typingActive = true

	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.typingDebounce, s.typingIdle)
	s.mu.Unlock()

	if start {
		s.publishTyping(conversationID, true)
	}
}

// typingIdle fires when the debounce window passes with no further input.
func (s *Service) typingIdle() {
	s.mu.Lock()
	if !s.typingActive {
		s.mu.Unlock()
		return
	}
	s.typingActive = false
	conversationID := s.openID
	s.mu.Unlock()

	if conversationID != "" {
		s.publishTyping(conversationID, false)
	}
}

// stopTyping clears the local typing state immediately, cancelling the idle
// timer so it cannot fire afterwards and republish a stale signal. Called on
// send and on conversation close.
func (s *Service) stopTyping() {
	s.mu.Lock()
	if !s.typingActive {
		if s.typingTimer != nil {
			s.typingTimer.Stop()
			s.typingTimer = nil
		}
		s.mu.Unlock()
		return
	}
	s.typingActive = false
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	conversationID := s.openID
	s.mu.Unlock()

	if conversationID != "" {
		s.publishTyping(conversationID, false)
	}
}

func (s *Service) publishTyping(conversationID string, isTyping bool) {
	s.background(func(ctx context.Context) error {
		if err := s.channel.SetTyping(ctx, conversationID, isTyping); err != nil {
			return fmt.Errorf("publish typing state: %w", err)
		}
		return nil
	})
}
