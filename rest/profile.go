package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lenshareapp/inbox/session"
	"github.com/lenshareapp/inbox/types"
)

// ProfileClient resolves user ids to display profiles. Used for conversation
// counterparts and for naming remote typers.
type ProfileClient struct {
	Client
}

func NewProfileClient(baseURL string, tokens session.TokenSource) *ProfileClient {
	return &ProfileClient{Client: Client{BaseURL: baseURL, Tokens: tokens}}
}

func (c *ProfileClient) Profile(ctx context.Context, userID string) (types.User, error) {
	var out types.User
	if err := c.do(ctx, http.MethodGet, "/users/"+userID, nil, nil, &out); err != nil {
		return types.User{}, fmt.Errorf("fetch profile: %w", err)
	}
	return out, nil
}
