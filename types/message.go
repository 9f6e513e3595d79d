package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lenshareapp/inbox/id"
	"github.com/lenshareapp/inbox/validator"
)

// MessageStatus is the delivery progression of a persisted message.
// It only ever moves forward: sent -> delivered -> read.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

func (s MessageStatus) rank() int {
	switch s {
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	}
	return 0
}

// Advance returns the further along of the two statuses.
// Applying a late "delivered" on top of "read" is a no-op.
func (s MessageStatus) Advance(to MessageStatus) MessageStatus {
	if to.rank() > s.rank() {
		return to
	}
	return s
}

type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	FileSize    uint64 `json:"fileSize"`
}

type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversationId"`
	FromUserID     string        `json:"fromUserId"`
	ToUserID       string        `json:"toUserId"`
	Body           string        `json:"body"`
	Attachments    []Attachment  `json:"attachments,omitempty"`
	Status         MessageStatus `json:"status"`
	SentAt         time.Time     `json:"sentAt"`
	ReadAt         *time.Time    `json:"readAt"`
	EditedAt       *time.Time    `json:"editedAt"`
	DeletedAt      *time.Time    `json:"deletedAt"`
}

// SendMessage is the dispatcher input. The domain-specific request
// (gig vs marketplace) is derived from the conversation's tag.
type SendMessage struct {
	ConversationID string
	Body           string
	Attachments    []Attachment
}

func (in *SendMessage) Validate() error {
	v := validator.New()

	in.Body = strings.TrimSpace(in.Body)

	if in.ConversationID == "" {
		v.AddError("ConversationID", "Conversation ID is required")
	}
	if in.Body == "" {
		v.AddError("Body", "Body is required")
	}
	if utf8.RuneCountInString(in.Body) > 1000 {
		v.AddError("Body", "Body must be at most 1000 characters")
	}

	return v.AsError()
}

// SendGigMessage is the gig surface's create-message request.
type SendGigMessage struct {
	GigID       string       `json:"gigId"`
	ToUserID    string       `json:"toUserId"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

func (in *SendGigMessage) Validate() error {
	v := validator.New()

	if !id.Valid(in.GigID) {
		v.AddError("GigID", "Gig ID is invalid")
	}
	if !id.Valid(in.ToUserID) {
		v.AddError("ToUserID", "Recipient ID is invalid")
	}
	if strings.TrimSpace(in.Body) == "" {
		v.AddError("Body", "Body is required")
	}

	return v.AsError()
}

// SendMarketplaceMessage is the marketplace surface's create-message request.
// The optional order ids tie the message to an offer, rental or sale.
type SendMarketplaceMessage struct {
	ListingID     string  `json:"listingId"`
	ToUserID      string  `json:"toUserId"`
	MessageBody   string  `json:"messageBody"`
	OfferID       *string `json:"offerId,omitempty"`
	RentalOrderID *string `json:"rentalOrderId,omitempty"`
	SaleOrderID   *string `json:"saleOrderId,omitempty"`
}

func (in *SendMarketplaceMessage) Validate() error {
	v := validator.New()

	if !id.Valid(in.ListingID) {
		v.AddError("ListingID", "Listing ID is invalid")
	}
	if !id.Valid(in.ToUserID) {
		v.AddError("ToUserID", "Recipient ID is invalid")
	}
	if strings.TrimSpace(in.MessageBody) == "" {
		v.AddError("MessageBody", "Message body is required")
	}

	return v.AsError()
}
