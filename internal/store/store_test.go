package store

import (
	"errors"
	"testing"
	"time"

	"auction-ledger/internal/layout"
	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(layout.V1())
}

func sampleBid(auctionID, bidder string, amount int64, n int) model.BidRecord {
	return model.BidRecord{
		BidID:     "bid-" + string(rune('a'+n)),
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: time.Unix(1_700_000_000+int64(n), 0).UTC(),
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()

	require.NoError(t, s.Put(rec.AuctionID, rec))

	got, err := s.Get(rec.AuctionID)
	require.NoError(t, err)
	require.Equal(t, rec.AuctionID, got.AuctionID)
	require.Equal(t, rec.Seller, got.Seller)
	require.True(t, rec.HighestBid.Equal(got.HighestBid))
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("nope")
	require.Error(t, err)
	require.True(t, errors.Is(err, ledgererrors.ErrNotFound))
}

func TestMemoryStore_CommitBidKeepsAppendOrder(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	for i, amount := range []int64{100, 120, 150} {
		bid := sampleBid(rec.AuctionID, "bob", amount, i)
		rec.HasBid = true
		rec.HighestBid = bid.Amount
		rec.HighestBidder = bid.Bidder
		require.NoError(t, s.CommitBid(rec, bid, nil))
	}

	bids, err := s.BidsByAuction(rec.AuctionID)
	require.NoError(t, err)
	require.Len(t, bids, 3)

	// Append order is preserved.
	require.True(t, bids[0].Amount.Equal(decimal.NewFromInt(100)))
	require.True(t, bids[2].Amount.Equal(decimal.NewFromInt(150)))
}

func TestMemoryStore_CommitBidUnknownAuction(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	rec.AuctionID = "nope"

	err := s.CommitBid(rec, sampleBid("nope", "bob", 1, 0), nil)
	require.True(t, errors.Is(err, ledgererrors.ErrNotFound))
}

func TestMemoryStore_CommitBidCreditsOutbid(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	outbid := &model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(100)}
	require.NoError(t, s.CommitBid(rec, sampleBid(rec.AuctionID, "carol", 120, 0), outbid))

	// A second outbid of the same party accumulates.
	outbid = &model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(50)}
	require.NoError(t, s.CommitBid(rec, sampleBid(rec.AuctionID, "carol", 150, 1), outbid))

	bal, err := s.EscrowBalance(rec.AuctionID, "bob")
	require.NoError(t, err)
	require.True(t, bal.Equal(decimal.NewFromInt(150)))
}

func TestMemoryStore_CommitBidAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))
	before, err := s.Get(rec.AuctionID)
	require.NoError(t, err)

	// Activate a descriptor declaring a bid field the codec cannot produce;
	// the bid encode then fails after the auction record already validated.
	bad := layout.V1()
	bad.Version = 2
	bad.Bid.Fields = append(bad.Bid.Fields,
		layout.Field{Name: "memo", Type: layout.TypeString, Slot: 5, Nullable: true})
	require.NoError(t, s.SetDescriptorSet(bad))

	changed := before
	changed.HasBid = true
	changed.HighestBid = decimal.NewFromInt(120)
	changed.HighestBidder = "carol"
	outbid := &model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(100)}

	err = s.CommitBid(changed, sampleBid(rec.AuctionID, "carol", 120, 0), outbid)
	require.True(t, errors.Is(err, ledgererrors.ErrLayoutMismatch))

	// Nothing of the transition leaked: no bid, no escrow credit, record
	// bytes untouched.
	bids, err := s.BidsByAuction(rec.AuctionID)
	require.NoError(t, err)
	require.Empty(t, bids)

	bal, err := s.EscrowBalance(rec.AuctionID, "bob")
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	got, err := s.Get(rec.AuctionID)
	require.NoError(t, err)
	require.Equal(t, before.HighestBidder, got.HighestBidder)
	require.True(t, before.HighestBid.Equal(got.HighestBid))
}

func TestMemoryStore_CommitSettlement(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	rec.Phase = model.PhaseSettled
	proceeds := model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: rec.Seller, Amount: decimal.NewFromInt(150)}
	require.NoError(t, s.CommitSettlement(rec, proceeds))

	got, err := s.Get(rec.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.PhaseSettled, got.Phase)

	bal, err := s.EscrowBalance(rec.AuctionID, rec.Seller)
	require.NoError(t, err)
	require.True(t, bal.Equal(decimal.NewFromInt(150)))
}

func TestMemoryStore_CommitWithdrawal(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	outbid := &model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(100)}
	require.NoError(t, s.CommitBid(rec, sampleBid(rec.AuctionID, "carol", 120, 0), outbid))

	rec.EscrowedAmount = decimal.Zero
	debit := model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(100)}
	require.NoError(t, s.CommitWithdrawal(debit, &rec))

	bal, err := s.EscrowBalance(rec.AuctionID, "bob")
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	// Zero is terminal but the entry remains for audit.
	balances, err := s.EscrowBalances(rec.AuctionID)
	require.NoError(t, err)
	require.Contains(t, balances, "bob")
}

func TestMemoryStore_CommitWithdrawalBeyondBalance(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	outbid := &model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(100)}
	require.NoError(t, s.CommitBid(rec, sampleBid(rec.AuctionID, "carol", 120, 0), outbid))

	debit := model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(101)}
	err := s.CommitWithdrawal(debit, nil)
	require.True(t, errors.Is(err, ledgererrors.ErrInsufficientEscrow))

	// Balance unchanged after the failed debit.
	bal, err := s.EscrowBalance(rec.AuctionID, "bob")
	require.NoError(t, err)
	require.True(t, bal.Equal(decimal.NewFromInt(100)))
}

func TestMemoryStore_CommitWithdrawalNoEntry(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	debit := model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "carol", Amount: decimal.NewFromInt(1)}
	err := s.CommitWithdrawal(debit, nil)
	require.True(t, errors.Is(err, ledgererrors.ErrInsufficientEscrow))
}

func TestMemoryStore_PutRejectsLayoutViolation(t *testing.T) {
	s := newTestStore(t)

	// Activate a descriptor declaring a field the codec cannot produce;
	// every write must then fail without being applied.
	bad := layout.V1()
	bad.Auction.Fields = append(bad.Auction.Fields,
		layout.Field{Name: "color", Type: layout.TypeString, Slot: 12})
	require.NoError(t, s.SetDescriptorSet(bad))

	rec := sampleAuction()
	err := s.Put(rec.AuctionID, rec)
	require.True(t, errors.Is(err, ledgererrors.ErrLayoutMismatch))

	_, err = s.Get(rec.AuctionID)
	require.True(t, errors.Is(err, ledgererrors.ErrNotFound))
}

func TestMemoryStore_DescriptorSwapKeepsRecordsReadable(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	require.NoError(t, s.SetDescriptorSet(layout.V2()))

	got, err := s.Get(rec.AuctionID)
	require.NoError(t, err)
	require.Equal(t, rec.AuctionID, got.AuctionID)
	require.Equal(t, rec.Seller, got.Seller)
	require.True(t, rec.StartTime.Equal(got.StartTime))
	require.True(t, rec.HighestBid.Equal(got.HighestBid))
	require.True(t, got.SettledAt.IsZero())
}

func TestMemoryStore_SetDescriptorSetRejectsVersionRegression(t *testing.T) {
	s := NewMemoryStore(layout.V2())

	err := s.SetDescriptorSet(layout.V1())
	require.True(t, errors.Is(err, ledgererrors.ErrIncompatibleLayout))

	// The newer layout stays active.
	set, err := s.DescriptorSet()
	require.NoError(t, err)
	require.Equal(t, uint64(2), set.Version)

	// Re-activating the same version is allowed; a restart does that.
	require.NoError(t, s.SetDescriptorSet(layout.V2()))
}

func TestMemoryStore_ForEachAuction(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		rec := sampleAuction()
		rec.AuctionID = id
		require.NoError(t, s.Put(id, rec))
	}

	var visited []string
	err := s.ForEachAuction(func(id string, rec model.AuctionRecord) error {
		visited = append(visited, id)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, visited)
}

func TestMemoryStore_ForEachAuctionPropagatesError(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	boom := errors.New("stop")
	err := s.ForEachAuction(func(string, model.AuctionRecord) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestMemoryStore_ForEachBidAndEscrow(t *testing.T) {
	s := newTestStore(t)
	rec := sampleAuction()
	require.NoError(t, s.Put(rec.AuctionID, rec))

	outbid := &model.EscrowBalance{AuctionID: rec.AuctionID, Bidder: "bob", Amount: decimal.NewFromInt(100)}
	require.NoError(t, s.CommitBid(rec, sampleBid(rec.AuctionID, "bob", 100, 0), nil))
	require.NoError(t, s.CommitBid(rec, sampleBid(rec.AuctionID, "carol", 120, 1), outbid))

	var bidders []string
	require.NoError(t, s.ForEachBid(func(bid model.BidRecord) error {
		bidders = append(bidders, bid.Bidder)
		return nil
	}))
	require.Equal(t, []string{"bob", "carol"}, bidders)

	var balances []string
	require.NoError(t, s.ForEachEscrow(func(bal model.EscrowBalance) error {
		balances = append(balances, bal.Bidder+"="+bal.Amount.String())
		return nil
	}))
	require.Equal(t, []string{"bob=100"}, balances)
}
