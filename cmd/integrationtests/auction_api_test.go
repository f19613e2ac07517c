package integrationtests

import (
	"net/http"
	"testing"
	"time"

	"auction-ledger/services/auction/helpers"

	"github.com/stretchr/testify/require"
)

func createTestAuction(t *testing.T, env *TestEnv, seller string, reserve string, durationSecs int64) string {
	t.Helper()

	env.MintAsset("nft-registry", 7, seller)
	resp, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions", helpers.CreateAuctionRequest{
		Seller:        seller,
		AssetContract: "nft-registry",
		AssetTokenID:  7,
		ReservePrice:  reserve,
		DurationSecs:  durationSecs,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return resp["auction_id"].(string)
}

// Full lifecycle through the HTTP surface: create, reject a bid below
// reserve, accept bids, track escrow for the outbid party, settle after
// expiry, and withdraw escrow exactly once.
func TestAuctionLifecycle(t *testing.T) {
	env := SetupTestEnv(t)
	env.FundBidder("bob", 1_000)
	env.FundBidder("carol", 1_000)

	auctionID := createTestAuction(t, env, "alice", "100", 3600)

	// Below reserve.
	_, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/bids",
		helpers.PlaceBidRequest{Bidder: "bob", Amount: "50"})
	require.Equal(t, http.StatusConflict, w.Code)

	// Exactly the reserve is accepted.
	resp, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/bids",
		helpers.PlaceBidRequest{Bidder: "bob", Amount: "100"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "100", resp["amount"])
	_, err := time.Parse(time.RFC3339, resp["timestamp"].(string))
	require.NoError(t, err)

	// An equal bid is too low; a higher one outbids.
	_, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/bids",
		helpers.PlaceBidRequest{Bidder: "carol", Amount: "100"})
	require.Equal(t, http.StatusConflict, w.Code)

	_, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/bids",
		helpers.PlaceBidRequest{Bidder: "carol", Amount: "150"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Outbid funds sit in escrow.
	resp, w = env.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID+"/escrow", nil)
	require.Equal(t, http.StatusOK, w.Code)
	balances := resp["balances"].(map[string]any)
	require.Equal(t, "100", balances["bob"])

	// Settlement before expiry is rejected.
	_, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/settle", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	env.Clock.Advance(time.Hour)

	resp, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/settle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "settled", resp["phase"])
	require.Equal(t, "carol", resp["highest_bidder"])
	require.Equal(t, "150", resp["highest_bid"])

	// Repeat settlement fails.
	_, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/settle", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// The outbid bidder withdraws once.
	resp, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/escrow/withdraw",
		helpers.WithdrawRequest{Bidder: "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "100", resp["amount"])

	_, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/escrow/withdraw",
		helpers.WithdrawRequest{Bidder: "bob"})
	require.Equal(t, http.StatusConflict, w.Code)

	// Seller proceeds come through the same path.
	resp, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/escrow/withdraw",
		helpers.WithdrawRequest{Bidder: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "150", resp["amount"])
}

func TestGetBidsEndpoint(t *testing.T) {
	env := SetupTestEnv(t)
	env.FundBidder("bob", 1_000)
	env.FundBidder("carol", 1_000)

	auctionID := createTestAuction(t, env, "alice", "10", 3600)

	for _, bid := range []helpers.PlaceBidRequest{
		{Bidder: "bob", Amount: "10"},
		{Bidder: "carol", Amount: "20"},
	} {
		_, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/bids", bid)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	resp, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)

	bids := resp["data"].([]any)
	require.Len(t, bids, 2)
	first := bids[0].(map[string]any)
	second := bids[1].(map[string]any)
	require.Equal(t, "bob", first["bidder"])
	require.Equal(t, "carol", second["bidder"])
}

func TestCancelEndpoint(t *testing.T) {
	env := SetupTestEnv(t)
	auctionID := createTestAuction(t, env, "alice", "100", 3600)

	// Non-seller cannot cancel.
	_, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/cancel",
		helpers.CancelRequest{Caller: "mallory"})
	require.Equal(t, http.StatusConflict, w.Code)

	resp, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/cancel",
		helpers.CancelRequest{Caller: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "cancelled", resp["phase"])

	// A terminal auction accepts no bids.
	env.FundBidder("bob", 1_000)
	_, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/bids",
		helpers.PlaceBidRequest{Bidder: "bob", Amount: "100"})
	require.Equal(t, http.StatusConflict, w.Code)
}

// The upgrade flow end to end: state written under logic v1 reads back
// unchanged after the upgrade to v2, and only post-upgrade settlements carry
// the settled_at stamp.
func TestUpgradeContinuity(t *testing.T) {
	env := SetupTestEnv(t)
	env.FundBidder("bob", 1_000)

	auctionID := createTestAuction(t, env, "alice", "100", 3600)

	_, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/bids",
		helpers.PlaceBidRequest{Bidder: "bob", Amount: "150"})
	require.Equal(t, http.StatusCreated, w.Code)

	before, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/admin/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v1", resp["logic_version"])
	require.Equal(t, float64(1), resp["layout_version"])

	// Unauthorized upgrade changes nothing.
	_, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/admin/upgrade",
		helpers.UpgradeRequest{Caller: "mallory", TargetVersion: "v2"})
	require.Equal(t, http.StatusForbidden, w.Code)

	resp, w = env.ExecuteRequestAndParse(t, http.MethodGet, "/admin/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v1", resp["logic_version"])

	// The layout endpoint exposes the v1 descriptor before the upgrade.
	resp, w = env.ExecuteRequestAndParse(t, http.MethodGet, "/admin/layout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1), resp["layout_version"])
	kinds := resp["kinds"].(map[string]any)
	require.Len(t, kinds["auction"].([]any), 12)

	// Authorized upgrade to v2.
	resp, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/admin/upgrade",
		helpers.UpgradeRequest{Caller: "admin", TargetVersion: "v2"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v2", resp["logic_version"])
	require.Equal(t, float64(2), resp["layout_version"])

	// Every field written under v1 reads back identical under v2.
	after, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, field := range []string{
		"auction_id", "seller", "asset_contract", "asset_token_id",
		"reserve_price", "start_time", "duration_seconds", "payment_token",
		"phase", "highest_bid", "highest_bidder", "escrowed_amount",
	} {
		require.Equal(t, before[field], after[field], "field %s changed across upgrade", field)
	}
	require.NotContains(t, after, "settled_at")

	// The layout endpoint now reports the extended v2 descriptor.
	resp, w = env.ExecuteRequestAndParse(t, http.MethodGet, "/admin/layout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(2), resp["layout_version"])
	kinds = resp["kinds"].(map[string]any)
	auctionFields := kinds["auction"].([]any)
	require.Len(t, auctionFields, 13)
	last := auctionFields[12].(map[string]any)
	require.Equal(t, "settled_at", last["name"])

	// v2 behavior applies from here on.
	env.Clock.Advance(time.Hour)
	resp, w = env.ExecuteRequestAndParse(t, http.MethodPost, "/auctions/"+auctionID+"/settle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "settled", resp["phase"])
	require.NotEmpty(t, resp["settled_at"])

	_, err := time.Parse(time.RFC3339, resp["settled_at"].(string))
	require.NoError(t, err)
}
