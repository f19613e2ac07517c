package helpers

// Request/Response DTOs
type CreateAuctionRequest struct {
	Seller        string `json:"seller" binding:"required"`
	AssetContract string `json:"asset_contract" binding:"required"`
	AssetTokenID  uint64 `json:"asset_token_id"`
	ReservePrice  string `json:"reserve_price" binding:"required"`
	StartTime     string `json:"start_time,omitempty"` // RFC3339; empty means now
	DurationSecs  int64  `json:"duration_seconds" binding:"required,gt=0"`
	PaymentToken  string `json:"payment_token,omitempty"`
}

type AuctionResponse struct {
	AuctionID      string `json:"auction_id"`
	Seller         string `json:"seller"`
	AssetContract  string `json:"asset_contract"`
	AssetTokenID   uint64 `json:"asset_token_id"`
	ReservePrice   string `json:"reserve_price"`
	StartTime      string `json:"start_time"`
	DurationSecs   int64  `json:"duration_seconds"`
	PaymentToken   string `json:"payment_token"`
	Phase          string `json:"phase"`
	HighestBid     string `json:"highest_bid,omitempty"`
	HighestBidder  string `json:"highest_bidder,omitempty"`
	EscrowedAmount string `json:"escrowed_amount"`
	SettledAt      string `json:"settled_at,omitempty"`
}

type PlaceBidRequest struct {
	Bidder string `json:"bidder" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

type CancelRequest struct {
	Caller string `json:"caller" binding:"required"`
}

type WithdrawRequest struct {
	Bidder string `json:"bidder" binding:"required"`
}

type WithdrawResponse struct {
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
}

type EscrowResponse struct {
	AuctionID string            `json:"auction_id"`
	Balances  map[string]string `json:"balances"`
}

type UpgradeRequest struct {
	Caller        string `json:"caller" binding:"required"`
	TargetVersion string `json:"target_version" binding:"required"`
}

type VersionResponse struct {
	Identity      string `json:"identity"`
	LogicVersion  string `json:"logic_version"`
	LayoutVersion uint64 `json:"layout_version"`
}

type LayoutFieldResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Slot     int    `json:"slot"`
	Nullable bool   `json:"nullable,omitempty"`
}

type LayoutResponse struct {
	Identity      string                           `json:"identity"`
	LogicVersion  string                           `json:"logic_version"`
	LayoutVersion uint64                           `json:"layout_version"`
	Kinds         map[string][]LayoutFieldResponse `json:"kinds"`
}
