// Package rest holds the clients for the gig and marketplace REST surfaces
// and the profile lookup. Both surfaces speak JSON over bearer-token auth;
// everything else about the backing store stays opaque.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nicolasparada/go-errs"

	"github.com/lenshareapp/inbox/session"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     session.TokenSource
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("session token: %w", err)
	}

	u := strings.TrimSuffix(c.BaseURL, "/") + path
	if len(query) != 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// statusError maps response codes onto error kinds the core can branch on.
func statusError(resp *http.Response) error {
	msg := errorMessage(resp)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errs.UnauthenticatedError(msg)
	case http.StatusForbidden:
		return errs.PermissionDeniedError(msg)
	case http.StatusNotFound:
		return errs.NotFoundError(msg)
	case http.StatusConflict:
		return errs.ConflictError(msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errs.InvalidArgumentError(msg)
	}

	return fmt.Errorf("%s: status %d", msg, resp.StatusCode)
}

func errorMessage(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<14)).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return http.StatusText(resp.StatusCode)
}
