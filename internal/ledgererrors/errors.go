package ledgererrors

import "errors"

// Validation errors: caller error, no state change.
var (
	ErrInvalidAuction   = errors.New("invalid auction parameters")
	ErrInvalidBid       = errors.New("invalid bid")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrAuctionExpired   = errors.New("auction bidding time is over")
	ErrTooEarly         = errors.New("auction bidding time is not over yet")
	ErrAlreadyFinal     = errors.New("auction already settled or cancelled")
	ErrNotAssetOwner    = errors.New("seller does not own the asset")
	ErrCancelForbidden  = errors.New("auction has bids and cannot be cancelled")
)

// Resource errors: an external collaborator declined; ledger state unchanged,
// safe to retry once the underlying condition is fixed.
var (
	ErrInsufficientEscrow = errors.New("insufficient escrow balance")
	ErrInsufficientFunds  = errors.New("insufficient funds for deposit")
	ErrTransferRejected   = errors.New("fund transfer rejected")
)

// Structural errors: internal consistency violations. LayoutMismatch and
// NotFound abort the operation outright; IncompatibleLayout aborts an upgrade
// attempt but is non-fatal to the running system.
var (
	ErrLayoutMismatch     = errors.New("record shape does not match active storage layout")
	ErrIncompatibleLayout = errors.New("descriptor is not a compatible extension of the active layout")
	ErrNotFound           = errors.New("auction not found")
	ErrNotAuthorized      = errors.New("caller not authorized for upgrade")
	ErrUnknownIdentity    = errors.New("unknown stable identity")
)
