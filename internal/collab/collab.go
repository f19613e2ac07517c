// Package collab declares the external capability interfaces the ledger core
// consumes. Wallet verification, the asset registry, fund movement, upgrade
// authorization, and time are all owned elsewhere; the core only needs these
// contracts. Concrete transports are out of scope.
package collab

import (
	"time"

	model "auction-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Action names an operation gated by access control.
type Action string

// ActionUpgrade is the only gated action in this core.
const ActionUpgrade Action = "upgrade"

// AssetRegistry confirms and transfers ownership of external assets.
type AssetRegistry interface {
	// OwnerOf returns the identity currently controlling the asset.
	OwnerOf(asset model.AssetRef) (string, error)

	// Transfer moves the asset between identities. Fails when from does not
	// own it or the asset is not transferable.
	Transfer(asset model.AssetRef, from, to string) error
}

// FundTransfer moves funds in and out of the ledger's custody. Both calls
// have at-most-once semantics; on failure the enclosing ledger operation
// fails whole.
type FundTransfer interface {
	Deposit(paymentToken, from string, amount decimal.Decimal) error
	Release(paymentToken, to string, amount decimal.Decimal) error
}

// AccessControl answers whether an identity may perform a gated action.
type AccessControl interface {
	IsAuthorized(identity string, action Action) bool
}

// Clock supplies time to the core; the core never reads the wall clock
// directly so tests can drive expiry deterministically.
type Clock interface {
	Now() time.Time
}
