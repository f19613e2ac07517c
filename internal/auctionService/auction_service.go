package auction

import (
	"fmt"
	"sync"
	"time"

	"auction-ledger/internal/collab"
	"auction-ledger/internal/layout"
	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/store"
	"auction-ledger/utils"

	"github.com/shopspring/decimal"
)

// CreateAuctionParams carries the caller-supplied fields of a new auction.
type CreateAuctionParams struct {
	Seller       string
	Asset        model.AssetRef
	ReservePrice decimal.Decimal
	StartTime    time.Time
	Duration     time.Duration
	PaymentToken string
}

// Logic is one version of the auction state machine. The upgrade coordinator
// binds a Logic to a stable identity and may rebind it; the ledger store is
// never owned by a specific Logic instance.
type Logic interface {
	Version() string
	Layout() layout.DescriptorSet

	CreateAuction(p CreateAuctionParams) (model.AuctionRecord, error)
	PlaceBid(auctionID, bidder string, amount decimal.Decimal) (model.BidRecord, error)
	Settle(auctionID string) (model.AuctionRecord, error)
	CancelAuction(auctionID, caller string) (model.AuctionRecord, error)
	WithdrawEscrow(auctionID, bidder string) (decimal.Decimal, error)

	GetAuction(auctionID string) (model.AuctionRecord, error)
	GetBids(auctionID string) ([]model.BidRecord, error)
	GetEscrowBalance(auctionID, bidder string) (decimal.Decimal, error)
	GetEscrowBalances(auctionID string) (map[string]decimal.Decimal, error)
}

// auctionLocks serializes PlaceBid/Settle/Withdraw per auction_id while
// letting distinct auctions proceed independently.
type auctionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAuctionLocks() *auctionLocks {
	return &auctionLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *auctionLocks) lockFor(auctionID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[auctionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[auctionID] = m
	}
	return m
}

// AuctionService is logic version v1: the business rules for creation,
// bidding, expiry detection, settlement, and escrow withdrawal, operating on
// records retrieved from the ledger store.
type AuctionService struct {
	store  store.LedgerStore
	assets collab.AssetRegistry
	funds  collab.FundTransfer
	clock  collab.Clock
	locks  *auctionLocks
}

// NewAuctionService creates the v1 state machine over the given store and
// collaborators.
func NewAuctionService(st store.LedgerStore, assets collab.AssetRegistry, funds collab.FundTransfer, clock collab.Clock) *AuctionService {
	return &AuctionService{
		store:  st,
		assets: assets,
		funds:  funds,
		clock:  clock,
		locks:  newAuctionLocks(),
	}
}

// Version identifies this logic version.
func (s *AuctionService) Version() string { return "v1" }

// Layout is the descriptor set this logic requires.
func (s *AuctionService) Layout() layout.DescriptorSet { return layout.V1() }

// CreateAuction validates the parameters, asserts asset ownership with the
// external registry, and persists a fresh auction record. No funds move.
func (s *AuctionService) CreateAuction(p CreateAuctionParams) (model.AuctionRecord, error) {
	now := s.clock.Now()

	if p.Seller == "" {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - missing seller", ledgererrors.ErrInvalidAuction)
	}
	if p.Asset.Contract == "" {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - missing asset reference", ledgererrors.ErrInvalidAuction)
	}
	if p.Duration <= 0 {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - non-positive duration", ledgererrors.ErrInvalidAuction)
	}
	if p.ReservePrice.IsNegative() {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - negative reserve price", ledgererrors.ErrInvalidAuction)
	}
	if p.StartTime.IsZero() {
		p.StartTime = now
	}
	p.StartTime = p.StartTime.UTC().Truncate(time.Second)
	if p.StartTime.Before(now) {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - start time in the past", ledgererrors.ErrInvalidAuction)
	}

	owner, err := s.assets.OwnerOf(p.Asset)
	if err != nil {
		return model.AuctionRecord{}, fmt.Errorf("service: failed to check asset owner: %w", err)
	}
	if owner != p.Seller {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - asset owned by %s", ledgererrors.ErrNotAssetOwner, owner)
	}

	phase := model.PhaseCreated
	if !p.StartTime.After(now) {
		phase = model.PhaseActive
	}

	rec := model.AuctionRecord{
		AuctionID:      utils.GenerateID(),
		Seller:         p.Seller,
		Asset:          p.Asset,
		ReservePrice:   p.ReservePrice,
		StartTime:      p.StartTime,
		Duration:       p.Duration,
		PaymentToken:   p.PaymentToken,
		Phase:          phase,
		EscrowedAmount: decimal.Zero,
	}

	if err := s.store.Put(rec.AuctionID, rec); err != nil {
		return model.AuctionRecord{}, fmt.Errorf("service: failed to persist auction: %w", err)
	}
	return rec, nil
}

// PlaceBid validates and records a bid, moving the previously highest bid
// into escrow. Serialized per auction; commits whole or not at all.
func (s *AuctionService) PlaceBid(auctionID, bidder string, amount decimal.Decimal) (model.BidRecord, error) {
	if auctionID == "" || bidder == "" {
		return model.BidRecord{}, fmt.Errorf("service: %w - missing auctionID or bidder", ledgererrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return model.BidRecord{}, fmt.Errorf("service: %w - non-positive bid amount", ledgererrors.ErrInvalidBid)
	}

	lock := s.locks.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.Get(auctionID)
	if err != nil {
		return model.BidRecord{}, fmt.Errorf("service: failed to load auction: %w", err)
	}
	now := s.clock.Now()

	if bidder == rec.Seller {
		return model.BidRecord{}, fmt.Errorf("service: %w - seller cannot bid on own auction", ledgererrors.ErrInvalidBid)
	}
	if rec.Phase.Terminal() {
		return model.BidRecord{}, fmt.Errorf("service: %w - auction is %s", ledgererrors.ErrAuctionNotActive, rec.Phase)
	}
	if rec.Phase == model.PhaseCreated && now.Before(rec.StartTime) {
		return model.BidRecord{}, fmt.Errorf("service: %w - bidding starts at %s", ledgererrors.ErrAuctionNotActive, rec.StartTime.Format(time.RFC3339))
	}
	if !now.Before(rec.EndTime()) {
		return model.BidRecord{}, fmt.Errorf("service: %w - bidding closed at %s", ledgererrors.ErrAuctionExpired, rec.EndTime().Format(time.RFC3339))
	}

	// Strict > against the highest bid; equal bids are rejected so there is
	// no "first equal bid wins" ambiguity.
	if rec.HasBid {
		if amount.Cmp(rec.HighestBid) <= 0 {
			return model.BidRecord{}, fmt.Errorf("service: %w - current highest bid is %s", ledgererrors.ErrBidTooLow, rec.HighestBid)
		}
	} else if amount.LessThan(rec.ReservePrice) {
		return model.BidRecord{}, fmt.Errorf("service: %w - reserve price is %s", ledgererrors.ErrBidTooLow, rec.ReservePrice)
	}

	if err := s.funds.Deposit(rec.PaymentToken, bidder, amount); err != nil {
		return model.BidRecord{}, fmt.Errorf("service: failed to deposit bid funds: %w", err)
	}

	bid := model.BidRecord{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
		Timestamp: now,
	}

	var outbid *model.EscrowBalance
	prevHasBid, prevBid, prevBidder := rec.HasBid, rec.HighestBid, rec.HighestBidder
	rec.Phase = model.PhaseActive
	rec.HasBid = true
	rec.HighestBid = amount
	rec.HighestBidder = bidder
	if prevHasBid {
		rec.EscrowedAmount = rec.EscrowedAmount.Add(prevBid)
		outbid = &model.EscrowBalance{AuctionID: auctionID, Bidder: prevBidder, Amount: prevBid}
	}

	// The store applies the bid, the outbid escrow credit, and the record
	// update as one unit, so a failure here leaves no ledger state behind;
	// only the external deposit has to be refunded.
	if err := s.store.CommitBid(rec, bid, outbid); err != nil {
		if refundErr := s.funds.Release(rec.PaymentToken, bidder, amount); refundErr != nil {
			utils.Error("failed to refund deposit after aborted bid", map[string]any{
				"auction_id": auctionID,
				"bidder":     bidder,
				"amount":     amount.String(),
				"error":      refundErr.Error(),
			})
		}
		return model.BidRecord{}, fmt.Errorf("service: failed to commit bid: %w", err)
	}
	return bid, nil
}

// Settle finalizes an expired auction: with a bid present it transfers the
// asset to the highest bidder and credits the seller's proceeds to escrow;
// without one it cancels. Idempotent in the failing sense: a second call on a
// terminal auction reports ErrAlreadyFinal and changes nothing.
func (s *AuctionService) Settle(auctionID string) (model.AuctionRecord, error) {
	return s.settle(auctionID, false)
}

func (s *AuctionService) settle(auctionID string, stampSettledAt bool) (model.AuctionRecord, error) {
	lock := s.locks.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.Get(auctionID)
	if err != nil {
		return model.AuctionRecord{}, fmt.Errorf("service: failed to load auction: %w", err)
	}
	now := s.clock.Now()

	if rec.Phase.Terminal() {
		return model.AuctionRecord{}, fmt.Errorf("service: %w", ledgererrors.ErrAlreadyFinal)
	}
	if now.Before(rec.EndTime()) {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - bidding closes at %s", ledgererrors.ErrTooEarly, rec.EndTime().Format(time.RFC3339))
	}

	if !rec.HasBid {
		// No winner; ownership was never transferred, so cancelling is a
		// pure phase transition.
		rec.Phase = model.PhaseCancelled
		if stampSettledAt {
			rec.SettledAt = now
		}
		if err := s.store.Put(auctionID, rec); err != nil {
			return model.AuctionRecord{}, fmt.Errorf("service: failed to cancel auction: %w", err)
		}
		return rec, nil
	}

	if err := s.assets.Transfer(rec.Asset, rec.Seller, rec.HighestBidder); err != nil {
		return model.AuctionRecord{}, fmt.Errorf("service: failed to transfer asset: %w", err)
	}

	rec.Phase = model.PhaseSettled
	if stampSettledAt {
		rec.SettledAt = now
	}

	// Seller proceeds become an escrow credit withdrawn through the same
	// path outbid bidders use; the credit and the settled record commit as
	// one unit. If that fails, the asset transfer is reversed so nothing of
	// the settlement remains.
	proceeds := model.EscrowBalance{AuctionID: auctionID, Bidder: rec.Seller, Amount: rec.HighestBid}
	if err := s.store.CommitSettlement(rec, proceeds); err != nil {
		if revertErr := s.assets.Transfer(rec.Asset, rec.HighestBidder, rec.Seller); revertErr != nil {
			utils.Error("failed to return asset after aborted settlement", map[string]any{
				"auction_id": auctionID,
				"seller":     rec.Seller,
				"error":      revertErr.Error(),
			})
		}
		return model.AuctionRecord{}, fmt.Errorf("service: failed to settle auction: %w", err)
	}
	return rec, nil
}

// CancelAuction lets the seller cancel before any bid exists.
func (s *AuctionService) CancelAuction(auctionID, caller string) (model.AuctionRecord, error) {
	lock := s.locks.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.Get(auctionID)
	if err != nil {
		return model.AuctionRecord{}, fmt.Errorf("service: failed to load auction: %w", err)
	}
	if rec.Phase.Terminal() {
		return model.AuctionRecord{}, fmt.Errorf("service: %w", ledgererrors.ErrAlreadyFinal)
	}
	if caller != rec.Seller {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - only the seller may cancel", ledgererrors.ErrCancelForbidden)
	}
	if rec.HasBid {
		return model.AuctionRecord{}, fmt.Errorf("service: %w", ledgererrors.ErrCancelForbidden)
	}

	rec.Phase = model.PhaseCancelled
	if err := s.store.Put(auctionID, rec); err != nil {
		return model.AuctionRecord{}, fmt.Errorf("service: failed to cancel auction: %w", err)
	}
	return rec, nil
}

// WithdrawEscrow pays out the caller's full escrow balance for the auction.
// The first call debits to zero; a repeat fails ErrInsufficientEscrow cleanly.
func (s *AuctionService) WithdrawEscrow(auctionID, bidder string) (decimal.Decimal, error) {
	if auctionID == "" || bidder == "" {
		return decimal.Zero, fmt.Errorf("service: %w - missing auctionID or bidder", ledgererrors.ErrInvalidBid)
	}

	lock := s.locks.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.Get(auctionID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: failed to load auction: %w", err)
	}

	balance, err := s.store.EscrowBalance(auctionID, bidder)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: failed to read escrow balance: %w", err)
	}
	if !balance.IsPositive() {
		return decimal.Zero, fmt.Errorf("service: %w", ledgererrors.ErrInsufficientEscrow)
	}

	// Release first: if the collaborator declines, the balance is untouched
	// and the caller may retry.
	if err := s.funds.Release(rec.PaymentToken, bidder, balance); err != nil {
		return decimal.Zero, fmt.Errorf("service: failed to release escrow funds: %w", err)
	}

	// Seller proceeds are tracked outside escrowed_amount, which covers only
	// outbid parties. The debit and the record update commit as one unit; if
	// that fails the released funds are clawed back.
	debit := model.EscrowBalance{AuctionID: auctionID, Bidder: bidder, Amount: balance}
	var updated *model.AuctionRecord
	if bidder != rec.Seller {
		rec.EscrowedAmount = rec.EscrowedAmount.Sub(balance)
		updated = &rec
	}
	if err := s.store.CommitWithdrawal(debit, updated); err != nil {
		if clawErr := s.funds.Deposit(rec.PaymentToken, bidder, balance); clawErr != nil {
			utils.Error("failed to reclaim funds after aborted withdrawal", map[string]any{
				"auction_id": auctionID,
				"bidder":     bidder,
				"amount":     balance.String(),
				"error":      clawErr.Error(),
			})
		}
		return decimal.Zero, fmt.Errorf("service: failed to debit escrow: %w", err)
	}
	return balance, nil
}

// GetAuction returns the auction record.
func (s *AuctionService) GetAuction(auctionID string) (model.AuctionRecord, error) {
	if auctionID == "" {
		return model.AuctionRecord{}, fmt.Errorf("service: %w - empty auction ID", ledgererrors.ErrInvalidAuction)
	}
	rec, err := s.store.Get(auctionID)
	if err != nil {
		return model.AuctionRecord{}, fmt.Errorf("service: failed to get auction: %w", err)
	}
	return rec, nil
}

// GetBids returns the auction's bid history in placement order.
func (s *AuctionService) GetBids(auctionID string) ([]model.BidRecord, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", ledgererrors.ErrInvalidAuction)
	}
	bids, err := s.store.BidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids: %w", err)
	}
	return bids, nil
}

// GetEscrowBalance returns the withdrawable balance for (auction, bidder).
func (s *AuctionService) GetEscrowBalance(auctionID, bidder string) (decimal.Decimal, error) {
	if auctionID == "" || bidder == "" {
		return decimal.Zero, fmt.Errorf("service: %w - missing auctionID or bidder", ledgererrors.ErrInvalidBid)
	}
	bal, err := s.store.EscrowBalance(auctionID, bidder)
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: failed to get escrow balance: %w", err)
	}
	return bal, nil
}

// GetEscrowBalances returns every escrow balance for the auction.
func (s *AuctionService) GetEscrowBalances(auctionID string) (map[string]decimal.Decimal, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", ledgererrors.ErrInvalidAuction)
	}
	balances, err := s.store.EscrowBalances(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get escrow balances: %w", err)
	}
	return balances, nil
}

// AuctionServiceV2 is logic version v2: identical rules, plus the settled_at
// timestamp appended to the auction layout and stamped at settlement.
type AuctionServiceV2 struct {
	*AuctionService
}

// NewAuctionServiceV2 wraps the shared state machine as logic v2.
func NewAuctionServiceV2(base *AuctionService) *AuctionServiceV2 {
	return &AuctionServiceV2{AuctionService: base}
}

// Version identifies this logic version.
func (s *AuctionServiceV2) Version() string { return "v2" }

// Layout is the descriptor set this logic requires.
func (s *AuctionServiceV2) Layout() layout.DescriptorSet { return layout.V2() }

// Settle behaves like v1 and additionally stamps settled_at.
func (s *AuctionServiceV2) Settle(auctionID string) (model.AuctionRecord, error) {
	return s.settle(auctionID, true)
}

// Interface conformance.
var (
	_ Logic = (*AuctionService)(nil)
	_ Logic = (*AuctionServiceV2)(nil)
)
