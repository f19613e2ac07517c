package integrationtests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	auction "auction-ledger/internal/auctionService"
	"auction-ledger/internal/collab"
	"auction-ledger/internal/coordinator"
	"auction-ledger/internal/layout"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/server"
	"auction-ledger/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TestEnv wires the full stack over in-memory collaborators for integration
// testing: memory store, coordinator, both logic versions, and the router.
type TestEnv struct {
	Router *gin.Engine
	Clock  *collab.ManualClock
	Assets *collab.MemoryAssetRegistry
	Funds  *collab.MemoryFunds
}

// SetupTestEnv deploys logic v1 behind a fresh identity and returns the
// assembled environment. "admin" is the only identity authorized to upgrade.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledgerStore := store.NewMemoryStore(layout.V1())
	assets := collab.NewMemoryAssetRegistry()
	funds := collab.NewMemoryFunds()
	clock := collab.NewManualClock(time.Unix(1_700_000_000, 0).UTC())

	serviceV1 := auction.NewAuctionService(ledgerStore, assets, funds, clock)
	coord := coordinator.New(collab.NewStaticAccessControl("admin"))

	identity, err := coord.DeployInitial(ledgerStore, serviceV1)
	if err != nil {
		t.Fatalf("failed to deploy initial logic: %v", err)
	}

	logics := func(version string) (auction.Logic, error) {
		switch version {
		case "v1":
			return serviceV1, nil
		case "v2":
			return auction.NewAuctionServiceV2(serviceV1), nil
		default:
			return nil, fmt.Errorf("no such logic version: %s", version)
		}
	}

	return &TestEnv{
		Router: server.SetupRouter(coord, identity, logics),
		Clock:  clock,
		Assets: assets,
		Funds:  funds,
	}
}

// MintAsset seeds ownership so a seller can open an auction.
func (e *TestEnv) MintAsset(contract string, tokenID uint64, owner string) {
	e.Assets.Mint(model.AssetRef{Contract: contract, TokenID: tokenID}, owner)
}

// FundBidder credits a bidder in the native payment token.
func (e *TestEnv) FundBidder(identity string, amount int64) {
	e.Funds.Fund(model.NativeToken, identity, decimal.NewFromInt(amount))
}

// ExecuteRequestAndParse executes an HTTP request on the environment's router
// and parses the response envelope, unwrapping "data" on success.
func (e *TestEnv) ExecuteRequestAndParse(t *testing.T, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	e.Router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if w.Code == 200 || w.Code == 201 {
			if data, ok := resp["data"].(map[string]any); ok {
				resp = data
			}
		}
	}

	return resp, w
}
