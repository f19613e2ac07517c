package collab

import (
	"fmt"
	"sync"
	"time"

	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryAssetRegistry is an in-process AssetRegistry for local runs and
// integration tests.
type MemoryAssetRegistry struct {
	mu     sync.RWMutex
	owners map[model.AssetRef]string
}

// NewMemoryAssetRegistry creates an empty registry.
func NewMemoryAssetRegistry() *MemoryAssetRegistry {
	return &MemoryAssetRegistry{owners: make(map[model.AssetRef]string)}
}

// Mint assigns initial ownership of an asset.
func (r *MemoryAssetRegistry) Mint(asset model.AssetRef, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[asset] = owner
}

// OwnerOf returns the current owner of the asset.
func (r *MemoryAssetRegistry) OwnerOf(asset model.AssetRef) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[asset]
	if !ok {
		return "", fmt.Errorf("owner of %s/%d: %w", asset.Contract, asset.TokenID, ledgererrors.ErrNotFound)
	}
	return owner, nil
}

// Transfer moves the asset; fails ErrTransferRejected when from is not the
// current owner.
func (r *MemoryAssetRegistry) Transfer(asset model.AssetRef, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[asset]
	if !ok || owner != from {
		return fmt.Errorf("transfer %s/%d from %s: %w", asset.Contract, asset.TokenID, from, ledgererrors.ErrTransferRejected)
	}
	r.owners[asset] = to
	return nil
}

// MemoryFunds is an in-process FundTransfer tracking per-identity balances
// per payment token. Deposits require a sufficient balance; releases always
// succeed and credit the recipient.
type MemoryFunds struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal // token "/" identity
}

// NewMemoryFunds creates an empty fund ledger.
func NewMemoryFunds() *MemoryFunds {
	return &MemoryFunds{balances: make(map[string]decimal.Decimal)}
}

func fundsKey(token, identity string) string {
	return token + "/" + identity
}

// Fund credits an identity so it can bid.
func (f *MemoryFunds) Fund(paymentToken, identity string, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fundsKey(paymentToken, identity)
	f.balances[key] = f.balanceLocked(key).Add(amount)
}

// Balance returns an identity's current balance for a token.
func (f *MemoryFunds) Balance(paymentToken, identity string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceLocked(fundsKey(paymentToken, identity))
}

func (f *MemoryFunds) balanceLocked(key string) decimal.Decimal {
	if bal, ok := f.balances[key]; ok {
		return bal
	}
	return decimal.Zero
}

// Deposit takes amount from the identity into ledger custody.
func (f *MemoryFunds) Deposit(paymentToken, from string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fundsKey(paymentToken, from)
	bal := f.balanceLocked(key)
	if bal.LessThan(amount) {
		return fmt.Errorf("deposit %s from %s: %w", amount, from, ledgererrors.ErrInsufficientFunds)
	}
	f.balances[key] = bal.Sub(amount)
	return nil
}

// Release pays amount out of ledger custody to the identity.
func (f *MemoryFunds) Release(paymentToken, to string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fundsKey(paymentToken, to)
	f.balances[key] = f.balanceLocked(key).Add(amount)
	return nil
}

// StaticAccessControl authorizes a fixed set of identities for every action.
type StaticAccessControl struct {
	admins map[string]bool
}

// NewStaticAccessControl authorizes exactly the given identities.
func NewStaticAccessControl(admins ...string) *StaticAccessControl {
	m := make(map[string]bool, len(admins))
	for _, a := range admins {
		m[a] = true
	}
	return &StaticAccessControl{admins: m}
}

// IsAuthorized reports whether identity is one of the configured admins.
func (c *StaticAccessControl) IsAuthorized(identity string, _ Action) bool {
	return c.admins[identity]
}

// SystemClock reads the wall clock, truncated to the second precision the
// storage layout persists.
type SystemClock struct{}

// Now returns the current UTC time at second precision.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ManualClock is a test clock advanced by hand.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock at the given instant.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now.UTC().Truncate(time.Second)}
}

// Now returns the clock's current instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
