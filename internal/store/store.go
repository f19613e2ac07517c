package store

import (
	"fmt"
	"sort"
	"sync"

	"auction-ledger/internal/layout"
	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// LedgerStore owns every persisted record, addressed by auction identifier.
// Writes are validated against the active storage layout descriptor before
// being committed: a write whose shape does not match the descriptor fails
// ErrLayoutMismatch and is never partially applied. Multi-record state
// transitions go through the Commit* methods, which apply their whole group
// of records as one unit. The store exposes no deletion; every entity is
// permanent once created.
type LedgerStore interface {
	Get(auctionID string) (model.AuctionRecord, error)
	Put(auctionID string, rec model.AuctionRecord) error
	BidsByAuction(auctionID string) ([]model.BidRecord, error)
	EscrowBalance(auctionID, bidder string) (decimal.Decimal, error)
	EscrowBalances(auctionID string) (map[string]decimal.Decimal, error)

	// CommitBid records one accepted bid: the bid is appended to the
	// auction's log, the outbid party's escrow is credited (when outbid is
	// non-nil), and the updated auction record replaces the old one. All
	// three commit together or not at all.
	CommitBid(rec model.AuctionRecord, bid model.BidRecord, outbid *model.EscrowBalance) error

	// CommitSettlement stores the settled auction record and credits the
	// proceeds to the given escrow balance as one unit.
	CommitSettlement(rec model.AuctionRecord, proceeds model.EscrowBalance) error

	// CommitWithdrawal debits the escrow balance by debit.Amount and, when
	// rec is non-nil, stores the updated auction record in the same unit.
	// Fails ErrInsufficientEscrow when the balance is smaller than the
	// debit; the zeroed entry is retained for audit.
	CommitWithdrawal(debit model.EscrowBalance, rec *model.AuctionRecord) error

	// DescriptorSet returns the active layout; SetDescriptorSet swaps it.
	// A swap that would regress the active version fails
	// ErrIncompatibleLayout. Both are reserved for the upgrade coordinator
	// and inspection tooling.
	DescriptorSet() (layout.DescriptorSet, error)
	SetDescriptorSet(set layout.DescriptorSet) error

	// The ForEach* methods visit every persisted record of one kind in
	// stable order. Used only for upgrade-time validation and audit, never
	// by the state machine itself.
	ForEachAuction(fn func(auctionID string, rec model.AuctionRecord) error) error
	ForEachBid(fn func(bid model.BidRecord) error) error
	ForEachEscrow(fn func(bal model.EscrowBalance) error) error
}

// MemoryStore is a concurrency-safe in-memory LedgerStore. Records are held
// as the canonical CBOR bytes produced by the active descriptor, so what a
// reader gets back is exactly what survives a logic swap.
type MemoryStore struct {
	mu       sync.RWMutex
	active   layout.DescriptorSet
	auctions map[string][]byte   // auctionID -> encoded auction record
	bids     map[string][][]byte // auctionID -> ordered encoded bid records
	escrow   map[string][]byte   // escrowKey(auctionID, bidder) -> encoded balance
}

// NewMemoryStore creates an empty store governed by the given genesis layout.
func NewMemoryStore(genesis layout.DescriptorSet) *MemoryStore {
	return &MemoryStore{
		active:   genesis,
		auctions: make(map[string][]byte),
		bids:     make(map[string][][]byte),
		escrow:   make(map[string][]byte),
	}
}

func escrowKey(auctionID, bidder string) string {
	return auctionID + "/" + bidder
}

// Get returns the auction record, decoded under the active descriptor.
func (s *MemoryStore) Get(auctionID string) (model.AuctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.auctions[auctionID]
	if !ok {
		return model.AuctionRecord{}, fmt.Errorf("get auction %s: %w", auctionID, ledgererrors.ErrNotFound)
	}
	return DecodeAuction(data, s.active.Auction)
}

// Put validates rec against the active descriptor and commits it whole.
func (s *MemoryStore) Put(auctionID string, rec model.AuctionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := EncodeAuction(rec, s.active.Auction)
	if err != nil {
		return fmt.Errorf("put auction %s: %w", auctionID, err)
	}
	s.auctions[auctionID] = data
	return nil
}

// BidsByAuction returns the auction's bid history in append order.
func (s *MemoryStore) BidsByAuction(auctionID string) ([]model.BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, ledgererrors.ErrNotFound)
	}
	out := make([]model.BidRecord, 0, len(s.bids[auctionID]))
	for _, data := range s.bids[auctionID] {
		rec, err := DecodeBid(data, s.active.Bid)
		if err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// CommitBid encodes every record of the bid transition first and mutates the
// maps only after all of them validated, so a layout violation anywhere
// leaves the store untouched.
func (s *MemoryStore) CommitBid(rec model.AuctionRecord, bid model.BidRecord, outbid *model.EscrowBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, ledgererrors.ErrNotFound)
	}
	recData, err := EncodeAuction(rec, s.active.Auction)
	if err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}
	bidData, err := EncodeBid(bid, s.active.Bid)
	if err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}
	var escrowData []byte
	if outbid != nil {
		bal, err := s.escrowLocked(outbid.AuctionID, outbid.Bidder)
		if err != nil {
			return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
		}
		bal.Amount = bal.Amount.Add(outbid.Amount)
		escrowData, err = EncodeEscrow(bal, s.active.Escrow)
		if err != nil {
			return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
		}
	}

	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], bidData)
	if outbid != nil {
		s.escrow[escrowKey(outbid.AuctionID, outbid.Bidder)] = escrowData
	}
	s.auctions[bid.AuctionID] = recData
	return nil
}

// CommitSettlement stores the settled record and the proceeds credit as one
// unit.
func (s *MemoryStore) CommitSettlement(rec model.AuctionRecord, proceeds model.EscrowBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recData, err := EncodeAuction(rec, s.active.Auction)
	if err != nil {
		return fmt.Errorf("commit settlement for auction %s: %w", rec.AuctionID, err)
	}
	bal, err := s.escrowLocked(proceeds.AuctionID, proceeds.Bidder)
	if err != nil {
		return fmt.Errorf("commit settlement for auction %s: %w", rec.AuctionID, err)
	}
	bal.Amount = bal.Amount.Add(proceeds.Amount)
	escrowData, err := EncodeEscrow(bal, s.active.Escrow)
	if err != nil {
		return fmt.Errorf("commit settlement for auction %s: %w", rec.AuctionID, err)
	}

	s.escrow[escrowKey(proceeds.AuctionID, proceeds.Bidder)] = escrowData
	s.auctions[rec.AuctionID] = recData
	return nil
}

// CommitWithdrawal debits the balance and optionally stores the updated
// auction record; both apply or neither does. The zeroed escrow entry is
// retained for audit.
func (s *MemoryStore) CommitWithdrawal(debit model.EscrowBalance, rec *model.AuctionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal, err := s.escrowLocked(debit.AuctionID, debit.Bidder)
	if err != nil {
		return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, err)
	}
	if bal.Amount.LessThan(debit.Amount) {
		return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, ledgererrors.ErrInsufficientEscrow)
	}
	bal.Amount = bal.Amount.Sub(debit.Amount)
	escrowData, err := EncodeEscrow(bal, s.active.Escrow)
	if err != nil {
		return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, err)
	}
	var recData []byte
	if rec != nil {
		recData, err = EncodeAuction(*rec, s.active.Auction)
		if err != nil {
			return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, err)
		}
	}

	s.escrow[escrowKey(debit.AuctionID, debit.Bidder)] = escrowData
	if rec != nil {
		s.auctions[rec.AuctionID] = recData
	}
	return nil
}

// EscrowBalance returns the current balance for (auction, bidder). A bidder
// with no entry has a zero balance.
func (s *MemoryStore) EscrowBalance(auctionID, bidder string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, err := s.escrowLocked(auctionID, bidder)
	if err != nil {
		return decimal.Zero, fmt.Errorf("escrow balance for %s/%s: %w", auctionID, bidder, err)
	}
	return bal.Amount, nil
}

// EscrowBalances returns every recorded balance for the auction, keyed by
// bidder. Entries at zero are included; they are audit state.
func (s *MemoryStore) EscrowBalances(auctionID string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := auctionID + "/"
	out := make(map[string]decimal.Decimal)
	for key, data := range s.escrow {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		bal, err := DecodeEscrow(data, s.active.Escrow)
		if err != nil {
			return nil, fmt.Errorf("escrow balances for %s: %w", auctionID, err)
		}
		out[bal.Bidder] = bal.Amount
	}
	return out, nil
}

func (s *MemoryStore) escrowLocked(auctionID, bidder string) (model.EscrowBalance, error) {
	data, ok := s.escrow[escrowKey(auctionID, bidder)]
	if !ok {
		return model.EscrowBalance{AuctionID: auctionID, Bidder: bidder, Amount: decimal.Zero}, nil
	}
	return DecodeEscrow(data, s.active.Escrow)
}

// DescriptorSet returns the active layout.
func (s *MemoryStore) DescriptorSet() (layout.DescriptorSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, nil
}

// SetDescriptorSet swaps the active layout. Existing record bytes are kept
// as-is; a compatible extension reads them unchanged, which is exactly the
// upgrade contract. Swapping to an older version than the active one fails
// ErrIncompatibleLayout: records may already carry slots the older
// descriptor does not know, and re-encoding under it would drop them.
// Compatibility of same-or-newer candidates is the caller's responsibility.
func (s *MemoryStore) SetDescriptorSet(set layout.DescriptorSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set.Version < s.active.Version {
		return fmt.Errorf("activate layout v%d over v%d: %w",
			set.Version, s.active.Version, ledgererrors.ErrIncompatibleLayout)
	}
	s.active = set
	return nil
}

// ForEachAuction visits every auction record in stable (sorted) order so that
// upgrade validation failures are deterministic.
func (s *MemoryStore) ForEachAuction(fn func(auctionID string, rec model.AuctionRecord) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.auctions))
	for id := range s.auctions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		rec, err := s.Get(id)
		if err != nil {
			return err
		}
		if err := fn(id, rec); err != nil {
			return err
		}
	}
	return nil
}

// ForEachBid visits every bid record, auctions in sorted order, bids in
// append order within an auction.
func (s *MemoryStore) ForEachBid(fn func(bid model.BidRecord) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.bids))
	for id := range s.bids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		bids, err := s.BidsByAuction(id)
		if err != nil {
			return err
		}
		for _, bid := range bids {
			if err := fn(bid); err != nil {
				return err
			}
		}
	}
	return nil
}

// ForEachEscrow visits every escrow balance in sorted key order.
func (s *MemoryStore) ForEachEscrow(fn func(bal model.EscrowBalance) error) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.escrow))
	for key := range s.escrow {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	for _, key := range keys {
		s.mu.RLock()
		data, ok := s.escrow[key]
		var bal model.EscrowBalance
		var err error
		if ok {
			bal, err = DecodeEscrow(data, s.active.Escrow)
		}
		s.mu.RUnlock()
		if !ok {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(bal); err != nil {
			return err
		}
	}
	return nil
}
