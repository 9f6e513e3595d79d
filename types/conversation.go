package types

import (
	"time"

	"github.com/lenshareapp/inbox/id"
	"github.com/lenshareapp/inbox/validator"
)

// Domain is the conversation source. Each domain has its own REST surface
// and context shape, but both normalize into the same Conversation.
type Domain string

const (
	DomainGig         Domain = "gig"
	DomainMarketplace Domain = "marketplace"
)

func (d Domain) Valid() bool {
	return d == DomainGig || d == DomainMarketplace
}

func (d Domain) String() string {
	return string(d)
}

type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusArchived ConversationStatus = "archived"
	ConversationStatusBlocked  ConversationStatus = "blocked"
)

// ConversationAction is a gig-surface status transition.
type ConversationAction string

const (
	ConversationActionArchive ConversationAction = "archive"
	ConversationActionBlock   ConversationAction = "block"
	ConversationActionUnblock ConversationAction = "unblock"
)

type GigContext struct {
	GigID     string     `json:"gigId"`
	Title     string     `json:"title"`
	CompType  string     `json:"compType"`
	StartTime *time.Time `json:"startTime"`
	Location  string     `json:"location"`
	Owner     *User      `json:"owner"`
}

type ListingSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Mode     string `json:"mode"`
}

type MarketplaceContext struct {
	ListingID     string          `json:"listingId"`
	Listing       *ListingSummary `json:"listing"`
	OfferID       *string         `json:"offerId"`
	RentalOrderID *string         `json:"rentalOrderId"`
	SaleOrderID   *string         `json:"saleOrderId"`
}

// LastMessage is the denormalized snippet shown in the conversation list.
type LastMessage struct {
	ID         string    `json:"id"`
	Body       string    `json:"body"`
	FromUserID string    `json:"fromUserId"`
	SentAt     time.Time `json:"sentAt"`
	Read       bool      `json:"read"`
}

// Conversation is the unified, domain-tagged view the store works with
// regardless of which surface a conversation came from. Exactly one of
// Gig or Marketplace is set, matching Domain.
type Conversation struct {
	ID            string             `json:"id"`
	Domain        Domain             `json:"domain"`
	Status        ConversationStatus `json:"status"`
	StartedAt     time.Time          `json:"startedAt"`
	LastMessageAt *time.Time         `json:"lastMessageAt"`
	LastMessage   *LastMessage       `json:"lastMessage"`
	UnreadCount   int                `json:"unreadCount"`

	OtherUser *User `json:"otherUser"`

	Gig         *GigContext         `json:"gig,omitempty"`
	Marketplace *MarketplaceContext `json:"marketplace,omitempty"`
}

// Recency is the merge sort key: last message time,
// falling back to the conversation start for empty ones.
func (c Conversation) Recency() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.StartedAt
}

// ConversationDetail is a conversation plus its full ordered message list,
// as returned by the domain detail endpoints.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

type ListConversations struct {
	GigID     *string
	Status    *ConversationStatus
	HasUnread *bool
	Limit     int
	Offset    int
}

func (in *ListConversations) Validate() error {
	v := validator.New()

	if in.GigID != nil && !id.Valid(*in.GigID) {
		v.AddError("GigID", "Gig ID is invalid")
	}
	if in.Limit < 0 {
		v.AddError("Limit", "Limit must not be negative")
	}
	if in.Offset < 0 {
		v.AddError("Offset", "Offset must not be negative")
	}

	return v.AsError()
}
