package inbox

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/nicolasparada/go-errs"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lenshareapp/inbox/types"
)

// pageCursor points at the last conversation of a page. Recency is carried
// alongside the id so a page boundary stays stable while the list reorders
// underneath it.
type pageCursor struct {
	ID      string    `msgpack:"i"`
	Recency time.Time `msgpack:"r"`
}

func encodeCursor(c pageCursor) (string, error) {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("msgpack marshal cursor: %w", err)
	}

	return base58.Encode(b), nil
}

func decodeCursor(s string) (pageCursor, error) {
	var c pageCursor

	b := base58.Decode(s)
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return c, errs.InvalidArgumentError("invalid cursor")
	}

	return c, nil
}

// ConversationsPage returns one page of the cached list plus the cursor for
// the next one. An empty cursor starts from the top; an empty returned
// cursor means the list is exhausted.
func (s *Service) ConversationsPage(cursor string, limit int) ([]types.Conversation, string, error) {
	if limit <= 0 {
		limit = s.listLimit
	}

	all := s.Conversations()

	start := 0
	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		start = len(all)
		for i, conv := range all {
			if conv.ID == c.ID {
				start = i + 1
				break
			}
			// The anchor left the list; resume at the first entry
			// older than where it was.
			if conv.Recency().Before(c.Recency) {
				start = i
				break
			}
		}
	}

	if start >= len(all) {
		return nil, "", nil
	}

	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]

	if end == len(all) {
		return page, "", nil
	}

	last := page[len(page)-1]
	next, err := encodeCursor(pageCursor{ID: last.ID, Recency: last.Recency()})
	if err != nil {
		return nil, "", err
	}
	return page, next, nil
}
