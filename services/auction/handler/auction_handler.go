package handler

import (
	"fmt"
	"net/http"
	"time"

	auction "auction-ledger/internal/auctionService"
	"auction-ledger/internal/layout"
	model "auction-ledger/internal/models"
	"auction-ledger/services/auction/helpers"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LedgerAPI is the coordinator surface the handlers dispatch through. Every
// call addresses the stable identity, never a logic version directly.
type LedgerAPI interface {
	CreateAuction(identity string, p auction.CreateAuctionParams) (model.AuctionRecord, error)
	PlaceBid(identity, auctionID, bidder string, amount decimal.Decimal) (model.BidRecord, error)
	Settle(identity, auctionID string) (model.AuctionRecord, error)
	CancelAuction(identity, auctionID, caller string) (model.AuctionRecord, error)
	WithdrawEscrow(identity, auctionID, bidder string) (decimal.Decimal, error)
	GetAuction(identity, auctionID string) (model.AuctionRecord, error)
	GetBids(identity, auctionID string) ([]model.BidRecord, error)
	GetEscrowBalance(identity, auctionID, bidder string) (decimal.Decimal, error)
	GetEscrowBalances(identity, auctionID string) (map[string]decimal.Decimal, error)
	Upgrade(identity, caller string, newLogic auction.Logic) error
	ActiveVersion(identity string) (string, uint64, error)
	ActiveLayout(identity string) (layout.DescriptorSet, error)
}

// LogicFactory builds a logic version by name for the upgrade endpoint.
type LogicFactory func(version string) (auction.Logic, error)

type AuctionHandler struct {
	ledger   LedgerAPI
	identity string
	logics   LogicFactory
}

func NewAuctionHandler(ledger LedgerAPI, identity string, logics LogicFactory) *AuctionHandler {
	return &AuctionHandler{ledger: ledger, identity: identity, logics: logics}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	reserve, err := decimal.NewFromString(req.ReservePrice)
	if err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", fmt.Errorf("reserve_price: %w", err))
		return
	}
	var startTime time.Time
	if req.StartTime != "" {
		startTime, err = time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			helpers.HandleBindError(c, "CreateAuctionHandler", fmt.Errorf("start_time: %w", err))
			return
		}
	}

	rec, err := h.ledger.CreateAuction(h.identity, auction.CreateAuctionParams{
		Seller:       req.Seller,
		Asset:        model.AssetRef{Contract: req.AssetContract, TokenID: req.AssetTokenID},
		ReservePrice: reserve,
		StartTime:    startTime,
		Duration:     time.Duration(req.DurationSecs) * time.Second,
		PaymentToken: req.PaymentToken,
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateAuctionHandler: failed to create auction", map[string]any{
			"handler": "CreateAuctionHandler",
			"seller":  req.Seller,
			"error":   err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.AuctionToResponse(rec), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": rec.AuctionID,
		"seller":     rec.Seller,
		"phase":      rec.Phase.String(),
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", fmt.Errorf("amount: %w", err))
		return
	}

	bid, err := h.ledger.PlaceBid(h.identity, auctionID, req.Bidder, amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"handler":    "PlaceBidHandler",
			"auction_id": auctionID,
			"bidder":     req.Bidder,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.BidToResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder":     bid.Bidder,
		"amount":     bid.Amount.String(),
	})
}

// SettleHandler handles POST /auctions/:auction_id/settle
func (h *AuctionHandler) SettleHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	rec, err := h.ledger.Settle(h.identity, auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("SettleHandler: failed to settle auction", map[string]any{
			"handler":    "SettleHandler",
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.AuctionToResponse(rec), "auction settled")
	helpers.LogSuccess("SettleHandler", "auction settled", map[string]any{
		"auction_id": rec.AuctionID,
		"phase":      rec.Phase.String(),
	})
}

// CancelHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CancelHandler", err)
		return
	}

	rec, err := h.ledger.CancelAuction(h.identity, auctionID, req.Caller)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CancelHandler: failed to cancel auction", map[string]any{
			"auction_id": auctionID,
			"caller":     req.Caller,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.AuctionToResponse(rec), "auction cancelled")
	helpers.LogSuccess("CancelHandler", "auction cancelled", map[string]any{
		"auction_id": rec.AuctionID,
	})
}

// WithdrawEscrowHandler handles POST /auctions/:auction_id/escrow/withdraw
func (h *AuctionHandler) WithdrawEscrowHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "WithdrawEscrowHandler", err)
		return
	}

	amount, err := h.ledger.WithdrawEscrow(h.identity, auctionID, req.Bidder)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("WithdrawEscrowHandler: failed to withdraw escrow", map[string]any{
			"auction_id": auctionID,
			"bidder":     req.Bidder,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.WithdrawResponse{
		AuctionID: auctionID,
		Bidder:    req.Bidder,
		Amount:    amount.String(),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "escrow withdrawn successfully")
	helpers.LogSuccess("WithdrawEscrowHandler", "escrow withdrawn successfully", map[string]any{
		"auction_id": auctionID,
		"bidder":     req.Bidder,
		"amount":     amount.String(),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	rec, err := h.ledger.GetAuction(h.identity, auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.AuctionToResponse(rec), "auction retrieved successfully")
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bids, err := h.ledger.GetBids(h.identity, auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, helpers.BidToResponse(bid))
	}
	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
}

// GetEscrowHandler handles GET /auctions/:auction_id/escrow
func (h *AuctionHandler) GetEscrowHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	balances, err := h.ledger.GetEscrowBalances(h.identity, auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetEscrowHandler: error retrieving escrow balances", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := helpers.EscrowResponse{AuctionID: auctionID, Balances: make(map[string]string, len(balances))}
	for bidder, amount := range balances {
		resp.Balances[bidder] = amount.String()
	}
	utils.JSONResponse(c, http.StatusOK, resp, "escrow balances retrieved successfully")
}

// UpgradeHandler handles POST /admin/upgrade
func (h *AuctionHandler) UpgradeHandler(c *gin.Context) {
	var req helpers.UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpgradeHandler", err)
		return
	}

	newLogic, err := h.logics(req.TargetVersion)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("unknown logic version: %w", err), "unknown logic version")
		utils.Warn("UpgradeHandler: unknown logic version", map[string]any{"target_version": req.TargetVersion})
		return
	}

	if err := h.ledger.Upgrade(h.identity, req.Caller, newLogic); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("UpgradeHandler: upgrade failed", map[string]any{
			"handler":        "UpgradeHandler",
			"target_version": req.TargetVersion,
			"caller":         req.Caller,
			"error":          err.Error(),
		})
		return
	}

	logicVersion, layoutVersion, err := h.ledger.ActiveVersion(h.identity)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		return
	}

	resp := helpers.VersionResponse{
		Identity:      h.identity,
		LogicVersion:  logicVersion,
		LayoutVersion: layoutVersion,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "upgrade applied successfully")
	helpers.LogSuccess("UpgradeHandler", "upgrade applied successfully", map[string]any{
		"logic_version":  logicVersion,
		"layout_version": layoutVersion,
	})
}

// LayoutHandler handles GET /admin/layout
func (h *AuctionHandler) LayoutHandler(c *gin.Context) {
	logicVersion, _, err := h.ledger.ActiveVersion(h.identity)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		return
	}
	set, err := h.ledger.ActiveLayout(h.identity)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.LayoutToResponse(h.identity, logicVersion, set), "active layout retrieved successfully")
}

// VersionHandler handles GET /admin/version
func (h *AuctionHandler) VersionHandler(c *gin.Context) {
	logicVersion, layoutVersion, err := h.ledger.ActiveVersion(h.identity)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		return
	}
	resp := helpers.VersionResponse{
		Identity:      h.identity,
		LogicVersion:  logicVersion,
		LayoutVersion: layoutVersion,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "active version retrieved successfully")
}
