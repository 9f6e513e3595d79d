package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lenshareapp/inbox/types"
)

func TestRefresh_MergesByRecency(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	gig := &fakeGig{
		conversations: func(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
			return []types.Conversation{
				gigConversation("gig_new", base.Add(time.Hour)),
				gigConversation("gig_old", base.Add(-time.Hour)),
			}, nil
		},
	}
	market := &fakeMarketplace{
		conversations: func(ctx context.Context, limit int) ([]types.Conversation, error) {
			return []types.Conversation{
				marketplaceConversation("market_mid", base),
			}, nil
		},
	}

	svc := newTestService(t, Config{Gig: gig, Marketplace: market})

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got := svc.Conversations()
	want := []string{"gig_new", "market_mid", "gig_old"}
	if len(got) != len(want) {
		t.Fatalf("expected %d conversations, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestRefresh_TieBreaksGigFirst(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	gig := &fakeGig{
		conversations: func(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
			return []types.Conversation{gigConversation("gig_tied", at)}, nil
		},
	}
	market := &fakeMarketplace{
		conversations: func(ctx context.Context, limit int) ([]types.Conversation, error) {
			return []types.Conversation{marketplaceConversation("market_tied", at)}, nil
		},
	}

	svc := newTestService(t, Config{Gig: gig, Marketplace: market})

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got := svc.Conversations()
	if got[0].ID != "gig_tied" || got[1].ID != "market_tied" {
		t.Fatalf("expected gig ahead on equal recency, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestRefresh_OneDomainFailingDegrades(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	gig := &fakeGig{
		conversations: func(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
			return nil, errors.New("gig service down")
		},
	}
	market := &fakeMarketplace{
		conversations: func(ctx context.Context, limit int) ([]types.Conversation, error) {
			return []types.Conversation{marketplaceConversation("market_only", base)}, nil
		},
	}

	svc := newTestService(t, Config{Gig: gig, Marketplace: market})

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("expected one-domain failure to degrade, got %v", err)
	}

	got := svc.Conversations()
	if len(got) != 1 || got[0].ID != "market_only" {
		t.Fatalf("expected only the marketplace conversation, got %+v", got)
	}
}

func TestRefresh_BothDomainsFailingErrors(t *testing.T) {
	gig := &fakeGig{
		conversations: func(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
			return nil, errors.New("gig service down")
		},
	}
	market := &fakeMarketplace{
		conversations: func(ctx context.Context, limit int) ([]types.Conversation, error) {
			return nil, errors.New("marketplace service down")
		},
	}

	svc := newTestService(t, Config{Gig: gig, Marketplace: market})

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error when both domains fail")
	}
}

func TestMergeConversations_EmptyUsesStartedAt(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	empty := types.Conversation{
		ID:        "gig_empty",
		Domain:    types.DomainGig,
		StartedAt: base.Add(time.Hour),
	}
	active := marketplaceConversation("market_active", base)

	got := mergeConversations([]types.Conversation{empty}, []types.Conversation{active})
	if got[0].ID != "gig_empty" {
		t.Fatalf("expected the empty conversation to sort by start time, got %s first", got[0].ID)
	}
}
