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

// GigClient talks to the gig-domain messaging surface.
// Conversations it returns are already tagged types.DomainGig.
type GigClient struct {
	Client
}

func NewGigClient(baseURL string, tokens session.TokenSource) *GigClient {
	return &GigClient{Client: Client{BaseURL: baseURL, Tokens: tokens}}
}

func (c *GigClient) Conversations(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	if in.GigID != nil {
		q.Set("gigId", *in.GigID)
	}
	if in.Status != nil {
		q.Set("status", string(*in.Status))
	}
	if in.HasUnread != nil {
		q.Set("hasUnread", strconv.FormatBool(*in.HasUnread))
	}
	if in.Limit > 0 {
		q.Set("limit", strconv.Itoa(in.Limit))
	}
	if in.Offset > 0 {
		q.Set("offset", strconv.Itoa(in.Offset))
	}

	var out struct {
		Conversations []types.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list gig conversations: %w", err)
	}

	for i := range out.Conversations {
		out.Conversations[i].Domain = types.DomainGig
	}

	return out.Conversations, nil
}

func (c *GigClient) Conversation(ctx context.Context, conversationID string) (types.ConversationDetail, error) {
	var out struct {
		Data types.ConversationDetail `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID, nil, nil, &out); err != nil {
		return types.ConversationDetail{}, fmt.Errorf("fetch gig conversation: %w", err)
	}

	out.Data.Domain = types.DomainGig

	return out.Data, nil
}

func (c *GigClient) SendMessage(ctx context.Context, in types.SendGigMessage) (types.Message, error) {
	if err := in.Validate(); err != nil {
		return types.Message{}, err
	}

	var out struct {
		Data types.Message `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/messages/send", nil, in, &out); err != nil {
		return types.Message{}, fmt.Errorf("send gig message: %w", err)
	}

	return out.Data, nil
}

func (c *GigClient) MarkConversationRead(ctx context.Context, conversationID string) error {
	if err := c.do(ctx, http.MethodPatch, "/conversations/"+conversationID+"/read", nil, nil, nil); err != nil {
		return fmt.Errorf("mark gig conversation read: %w", err)
	}
	return nil
}

func (c *GigClient) UpdateConversation(ctx context.Context, conversationID string, action types.ConversationAction) error {
	in := map[string]string{"action": string(action)}
	if err := c.do(ctx, http.MethodPatch, "/conversations/"+conversationID, nil, in, nil); err != nil {
		return fmt.Errorf("update gig conversation: %w", err)
	}
	return nil
}
