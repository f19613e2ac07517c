package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-ledger/internal/layout"
	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, ledgererrors.ErrNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, ledgererrors.ErrUnknownIdentity):
		return http.StatusNotFound, "unknown ledger identity"
	case errors.Is(err, ledgererrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, ledgererrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, ledgererrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, ledgererrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not active"
	case errors.Is(err, ledgererrors.ErrAuctionExpired):
		return http.StatusConflict, "auction bidding time is over"
	case errors.Is(err, ledgererrors.ErrTooEarly):
		return http.StatusConflict, "auction bidding time is not over yet"
	case errors.Is(err, ledgererrors.ErrAlreadyFinal):
		return http.StatusConflict, "auction already settled or cancelled"
	case errors.Is(err, ledgererrors.ErrCancelForbidden):
		return http.StatusConflict, "auction cannot be cancelled"
	case errors.Is(err, ledgererrors.ErrInsufficientEscrow):
		return http.StatusConflict, "insufficient escrow balance"
	case errors.Is(err, ledgererrors.ErrInsufficientFunds):
		return http.StatusConflict, "insufficient funds"
	case errors.Is(err, ledgererrors.ErrNotAssetOwner):
		return http.StatusForbidden, "seller does not own the asset"
	case errors.Is(err, ledgererrors.ErrNotAuthorized):
		return http.StatusForbidden, "caller not authorized"
	case errors.Is(err, ledgererrors.ErrIncompatibleLayout):
		return http.StatusConflict, "incompatible storage layout"
	case errors.Is(err, ledgererrors.ErrTransferRejected):
		return http.StatusBadGateway, "fund transfer rejected"
	case errors.Is(err, ledgererrors.ErrLayoutMismatch):
		return http.StatusInternalServerError, "storage layout violation"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// AuctionToResponse converts a persisted auction record into its API shape.
func AuctionToResponse(rec model.AuctionRecord) AuctionResponse {
	resp := AuctionResponse{
		AuctionID:      rec.AuctionID,
		Seller:         rec.Seller,
		AssetContract:  rec.Asset.Contract,
		AssetTokenID:   rec.Asset.TokenID,
		ReservePrice:   rec.ReservePrice.String(),
		StartTime:      rec.StartTime.UTC().Format(time.RFC3339),
		DurationSecs:   int64(rec.Duration / time.Second),
		PaymentToken:   rec.PaymentToken,
		Phase:          rec.Phase.String(),
		EscrowedAmount: rec.EscrowedAmount.String(),
	}
	if rec.HasBid {
		resp.HighestBid = rec.HighestBid.String()
		resp.HighestBidder = rec.HighestBidder
	}
	if !rec.SettledAt.IsZero() {
		resp.SettledAt = rec.SettledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// LayoutToResponse flattens the active descriptor set for inspection clients.
func LayoutToResponse(identity, logicVersion string, set layout.DescriptorSet) LayoutResponse {
	kinds := make(map[string][]LayoutFieldResponse, 3)
	for _, kind := range []string{layout.KindAuction, layout.KindBid, layout.KindEscrow} {
		desc, ok := set.ByKind(kind)
		if !ok {
			continue
		}
		fields := make([]LayoutFieldResponse, 0, len(desc.Fields))
		for _, f := range desc.Fields {
			fields = append(fields, LayoutFieldResponse{
				Name:     f.Name,
				Type:     string(f.Type),
				Slot:     f.Slot,
				Nullable: f.Nullable,
			})
		}
		kinds[kind] = fields
	}
	return LayoutResponse{
		Identity:      identity,
		LogicVersion:  logicVersion,
		LayoutVersion: set.Version,
		Kinds:         kinds,
	}
}

// BidToResponse converts a bid record into its API shape.
func BidToResponse(bid model.BidRecord) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount.String(),
		Timestamp: bid.Timestamp.UTC().Format(time.RFC3339),
	}
}
