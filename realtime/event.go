// Package realtime wraps the data service's change-subscription primitive:
// filtered row-change streams plus row writes for the ephemeral typing table.
// It owns the connect/disconnect/reconnect lifecycle of the three channels a
// signed-in session needs and translates raw change events into typed ones.
package realtime

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/lenshareapp/inbox/types"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

const (
	TableMessages         = "messages"
	TableTypingIndicators = "typing_indicators"

	ColumnToUserID       = "to_user_id"
	ColumnFromUserID     = "from_user_id"
	ColumnConversationID = "conversation_id"
)

// Envelope is one raw change event as it travels on the feed.
// Old and New are msgpack-encoded table rows; which is set depends on Type.
type Envelope struct {
	Table string             `msgpack:"table"`
	Type  ChangeType         `msgpack:"type"`
	Old   msgpack.RawMessage `msgpack:"old,omitempty"`
	New   msgpack.RawMessage `msgpack:"new,omitempty"`
}

func (e Envelope) DecodeNew(v any) error {
	if len(e.New) == 0 {
		return fmt.Errorf("change event has no new row")
	}
	return msgpack.Unmarshal(e.New, v)
}

func (e Envelope) DecodeOld(v any) error {
	if len(e.Old) == 0 {
		return fmt.Errorf("change event has no old row")
	}
	return msgpack.Unmarshal(e.Old, v)
}

func NewEnvelope(table string, typ ChangeType, oldRow, newRow any) (Envelope, error) {
	env := Envelope{Table: table, Type: typ}

	if oldRow != nil {
		b, err := msgpack.Marshal(oldRow)
		if err != nil {
			return env, fmt.Errorf("marshal old row: %w", err)
		}
		env.Old = b
	}
	if newRow != nil {
		b, err := msgpack.Marshal(newRow)
		if err != nil {
			return env, fmt.Errorf("marshal new row: %w", err)
		}
		env.New = b
	}

	return env, nil
}

// MessageRow is the messages-table row shape carried by change events.
type MessageRow struct {
	ID             string              `msgpack:"id"`
	ConversationID string              `msgpack:"conversation_id"`
	Domain         types.Domain        `msgpack:"domain"`
	FromUserID     string              `msgpack:"from_user_id"`
	ToUserID       string              `msgpack:"to_user_id"`
	Body           string              `msgpack:"body"`
	Status         types.MessageStatus `msgpack:"status"`
	SentAt         time.Time           `msgpack:"sent_at"`
	ReadAt         *time.Time          `msgpack:"read_at"`
	UpdatedAt      *time.Time          `msgpack:"updated_at"`
}

func (r MessageRow) Message() types.Message {
	return types.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		FromUserID:     r.FromUserID,
		ToUserID:       r.ToUserID,
		Body:           r.Body,
		Status:         r.Status,
		SentAt:         r.SentAt,
		ReadAt:         r.ReadAt,
	}
}

// TypingRow is the typing_indicators-table row shape.
type TypingRow struct {
	ConversationID string    `msgpack:"conversation_id"`
	UserID         string    `msgpack:"user_id"`
	IsTyping       bool      `msgpack:"is_typing"`
	LastActivity   time.Time `msgpack:"last_activity"`
}

// StatusUpdate is the typed event for a status change on a message the
// current user sent.
type StatusUpdate struct {
	MessageID string
	Status    types.MessageStatus
	UpdatedAt time.Time
}
