package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the lifecycle stage of an auction record.
type Phase uint8

const (
	PhaseCreated Phase = iota
	PhaseActive
	PhaseSettled
	PhaseCancelled
)

// String returns the lowercase phase name used in logs and API responses.
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseActive:
		return "active"
	case PhaseSettled:
		return "settled"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase is final. Terminal auctions are retained
// for audit and never transition again.
func (p Phase) Terminal() bool {
	return p == PhaseSettled || p == PhaseCancelled
}

// AssetRef identifies one item held by an external asset registry.
type AssetRef struct {
	Contract string `json:"contract"`
	TokenID  uint64 `json:"token_id"`
}

// NativeToken is the payment_token sentinel for the native currency.
const NativeToken = ""

// AuctionRecord is the persisted state of one auction. The record is created
// by CreateAuction and mutated only through the defined phase transitions.
type AuctionRecord struct {
	AuctionID    string          `json:"auction_id"`
	Seller       string          `json:"seller"`
	Asset        AssetRef        `json:"asset"`
	ReservePrice decimal.Decimal `json:"reserve_price"`
	StartTime    time.Time       `json:"start_time"`
	Duration     time.Duration   `json:"duration"`
	PaymentToken string          `json:"payment_token"`
	Phase        Phase           `json:"phase"`

	// HasBid gates HighestBid/HighestBidder; both are meaningless while false.
	HasBid        bool            `json:"has_bid"`
	HighestBid    decimal.Decimal `json:"highest_bid"`
	HighestBidder string          `json:"highest_bidder"`

	// EscrowedAmount is the sum of all currently-outbid, not-yet-withdrawn
	// bid amounts for this auction, accounted separately from HighestBid.
	EscrowedAmount decimal.Decimal `json:"escrowed_amount"`

	// SettledAt is stamped by logic v2 at settlement; zero under v1.
	SettledAt time.Time `json:"settled_at,omitempty"`
}

// EndTime returns the instant bidding closes.
func (a AuctionRecord) EndTime() time.Time {
	return a.StartTime.Add(a.Duration)
}

// Expired reports the expired-unsettled condition: bidding time is over but
// no terminal transition has been recorded yet. Derived, never stored.
func (a AuctionRecord) Expired(now time.Time) bool {
	return !a.Phase.Terminal() && !now.Before(a.EndTime())
}

// BidRecord is one append-only audit entry. Bid records are never mutated or
// deleted; escrow obligations can be reconstructed from them.
type BidRecord struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	Bidder    string          `json:"bidder"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// EscrowBalance is the amount withdrawable by one bidder for one auction.
// Zero is a valid terminal value; the entry is retained for audit.
type EscrowBalance struct {
	AuctionID string          `json:"auction_id"`
	Bidder    string          `json:"bidder"`
	Amount    decimal.Decimal `json:"amount"`
}
