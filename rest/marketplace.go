package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lenshareapp/inbox/session"
	"github.com/lenshareapp/inbox/types"
)

// MarketplaceClient talks to the marketplace-domain messaging surface.
// Conversations it returns are already tagged types.DomainMarketplace.
type MarketplaceClient struct {
	Client
}

func NewMarketplaceClient(baseURL string, tokens session.TokenSource) *MarketplaceClient {
	return &MarketplaceClient{Client: Client{BaseURL: baseURL, Tokens: tokens}}
}

func (c *MarketplaceClient) Conversations(ctx context.Context, limit int) ([]types.Conversation, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out struct {
		Conversations []types.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/marketplace/conversations", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list marketplace conversations: %w", err)
	}

	for i := range out.Conversations {
		out.Conversations[i].Domain = types.DomainMarketplace
	}

	return out.Conversations, nil
}

// Conversation fetches a conversation detail. The marketplace surface folds
// mark-as-read into this fetch server-side, so opening a conversation needs
// no separate read call.
func (c *MarketplaceClient) Conversation(ctx context.Context, conversationID string) (types.ConversationDetail, error) {
	var out types.ConversationDetail
	if err := c.do(ctx, http.MethodGet, "/marketplace/conversations/"+conversationID, nil, nil, &out); err != nil {
		return types.ConversationDetail{}, fmt.Errorf("fetch marketplace conversation: %w", err)
	}

	out.Domain = types.DomainMarketplace

	return out, nil
}

func (c *MarketplaceClient) SendMessage(ctx context.Context, in types.SendMarketplaceMessage) (types.Message, error) {
	if err := in.Validate(); err != nil {
		return types.Message{}, err
	}

	var out types.Message
	if err := c.do(ctx, http.MethodPost, "/marketplace/messages/send", nil, in, &out); err != nil {
		return types.Message{}, fmt.Errorf("send marketplace message: %w", err)
	}

	return out, nil
}

func (c *MarketplaceClient) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := c.do(ctx, http.MethodDelete, "/marketplace/conversations/"+conversationID, nil, nil, nil); err != nil {
		return fmt.Errorf("delete marketplace conversation: %w", err)
	}
	return nil
}
