package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lenshareapp/inbox/types"
)

// Refresh fetches both domains concurrently, normalizes them into one list
// and replaces the store. A failure in one domain degrades to an empty list
// for that domain so the other's results still show; only both failing is an
// error.
func (s *Service) Refresh(ctx context.Context) error {
	var (
		gigList, marketList []types.Conversation
		gigErr, marketErr   error
	)

	var g errgroup.Group
	g.Go(func() error {
		gigList, gigErr = s.gig.Conversations(ctx, types.ListConversations{Limit: s.listLimit})
		return nil
	})
	g.Go(func() error {
		marketList, marketErr = s.market.Conversations(ctx, s.listLimit)
		return nil
	})
	_ = g.Wait()

	if gigErr != nil && marketErr != nil {
		return fmt.Errorf("fetch conversations: %w", errors.Join(gigErr, marketErr))
	}
	if gigErr != nil {
		s.logger.Error("fetch gig conversations", "error", gigErr)
		gigList = nil
	}
	if marketErr != nil {
		s.logger.Error("fetch marketplace conversations", "error", marketErr)
		marketList = nil
	}

	merged := mergeConversations(gigList, marketList)

	s.mu.Lock()
	s.replaceConversationsLocked(merged)
	s.mu.Unlock()

	return nil
}

// mergeConversations interleaves both tagged lists by recency, newest first.
// The sort is stable over the gig-then-marketplace concatenation, so on
// equal timestamps a gig conversation sorts ahead of a marketplace one.
func mergeConversations(gig, market []types.Conversation) []types.Conversation {
	merged := make([]types.Conversation, 0, len(gig)+len(market))
	merged = append(merged, gig...)
	merged = append(merged, market...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Recency().After(merged[j].Recency())
	})

	return merged
}
