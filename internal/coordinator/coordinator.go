// Package coordinator binds auction logic versions to stable identities and
// swaps them without touching persisted state. Callers always address the
// stable identity; the coordinator dispatches to whichever logic version is
// currently bound behind it.
package coordinator

import (
	"fmt"
	"sync"

	auction "auction-ledger/internal/auctionService"
	"auction-ledger/internal/collab"
	"auction-ledger/internal/layout"
	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"
	"auction-ledger/internal/store"
	"auction-ledger/utils"

	"github.com/shopspring/decimal"
)

// instance is one stable identity: its ledger store and the logic currently
// bound to it. The RWMutex is the upgrade barrier: every dispatched ledger
// operation holds the read side, Upgrade takes the write side, so a rebind
// never interleaves with an in-flight operation.
type instance struct {
	mu    sync.RWMutex
	store store.LedgerStore
	logic auction.Logic
}

// Coordinator manages the identity table and enforces the upgrade contract.
type Coordinator struct {
	mu        sync.RWMutex
	access    collab.AccessControl
	instances map[string]*instance
}

// New creates a coordinator using the given access-control collaborator to
// gate upgrades.
func New(access collab.AccessControl) *Coordinator {
	return &Coordinator{
		access:    access,
		instances: make(map[string]*instance),
	}
}

// DeployInitial binds the initial logic version to a fresh stable identity
// and returns that identity. The logic's required descriptor set is installed
// as the active layout unless the store already carries a newer one from a
// prior deployment; in that case the persisted layout wins, since activating
// the older descriptors would drop slots that records may already carry.
func (c *Coordinator) DeployInitial(st store.LedgerStore, logic auction.Logic) (string, error) {
	active, err := st.DescriptorSet()
	if err != nil {
		return "", fmt.Errorf("coordinator: failed to read active layout: %w", err)
	}
	required := logic.Layout()
	if active.Version > required.Version {
		utils.Warn("store carries a newer layout than the deployed logic requires", map[string]any{
			"active_layout":   active.Version,
			"required_layout": required.Version,
		})
	} else {
		if err := st.SetDescriptorSet(required); err != nil {
			return "", fmt.Errorf("coordinator: failed to install genesis layout: %w", err)
		}
		active = required
	}

	identity := utils.GenerateID()
	c.mu.Lock()
	c.instances[identity] = &instance{store: st, logic: logic}
	c.mu.Unlock()

	utils.Info("deployed initial logic", map[string]any{
		"identity":       identity,
		"logic_version":  logic.Version(),
		"layout_version": active.Version,
	})
	return identity, nil
}

func (c *Coordinator) instanceFor(identity string) (*instance, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	inst, ok := c.instances[identity]
	if !ok {
		return nil, fmt.Errorf("coordinator: identity %s: %w", identity, ledgererrors.ErrUnknownIdentity)
	}
	return inst, nil
}

// Upgrade atomically rebinds the identity's dispatch target to newLogic.
// When newLogic requires a different layout, the candidate descriptor set
// must be a compatible extension of the active one and every persisted
// record must re-encode cleanly under it; otherwise the upgrade aborts with
// the old logic fully active and no record touched.
func (c *Coordinator) Upgrade(identity, caller string, newLogic auction.Logic) error {
	if !c.access.IsAuthorized(caller, collab.ActionUpgrade) {
		return fmt.Errorf("coordinator: caller %s: %w", caller, ledgererrors.ErrNotAuthorized)
	}

	inst, err := c.instanceFor(identity)
	if err != nil {
		return err
	}

	// Write side of the barrier: waits out every in-flight ledger operation
	// and blocks new ones until the rebind decision is made.
	inst.mu.Lock()
	defer inst.mu.Unlock()

	current, err := inst.store.DescriptorSet()
	if err != nil {
		return fmt.Errorf("coordinator: failed to read active layout: %w", err)
	}
	candidate := newLogic.Layout()

	if candidate.Version != current.Version {
		if !layout.IsCompatibleExtension(current, candidate) {
			return fmt.Errorf("coordinator: layout v%d -> v%d: %w",
				current.Version, candidate.Version, ledgererrors.ErrIncompatibleLayout)
		}
		// Full scan: every persisted record of every kind must round-trip
		// under the candidate descriptors before anything is switched.
		if err := migrationCheck(inst.store, candidate); err != nil {
			return fmt.Errorf("coordinator: upgrade validation failed: %w: %w", ledgererrors.ErrIncompatibleLayout, err)
		}
		if err := inst.store.SetDescriptorSet(candidate); err != nil {
			return fmt.Errorf("coordinator: failed to activate layout v%d: %w", candidate.Version, err)
		}
	}

	oldVersion := inst.logic.Version()
	inst.logic = newLogic

	utils.Info("rebound logic version", map[string]any{
		"identity":       identity,
		"from":           oldVersion,
		"to":             newLogic.Version(),
		"layout_version": candidate.Version,
	})
	return nil
}

// migrationCheck re-encodes every persisted record under the candidate
// descriptors. Nothing is written; the first record that fails aborts the
// scan.
func migrationCheck(st store.LedgerStore, candidate layout.DescriptorSet) error {
	err := st.ForEachAuction(func(id string, rec model.AuctionRecord) error {
		if _, err := store.EncodeAuction(rec, candidate.Auction); err != nil {
			return fmt.Errorf("auction %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	err = st.ForEachBid(func(bid model.BidRecord) error {
		if _, err := store.EncodeBid(bid, candidate.Bid); err != nil {
			return fmt.Errorf("bid %s: %w", bid.BidID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return st.ForEachEscrow(func(bal model.EscrowBalance) error {
		if _, err := store.EncodeEscrow(bal, candidate.Escrow); err != nil {
			return fmt.Errorf("escrow %s/%s: %w", bal.AuctionID, bal.Bidder, err)
		}
		return nil
	})
}

// ActiveVersion reports the logic and layout versions live behind identity.
func (c *Coordinator) ActiveVersion(identity string) (logicVersion string, layoutVersion uint64, err error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return "", 0, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	set, err := inst.store.DescriptorSet()
	if err != nil {
		return "", 0, fmt.Errorf("coordinator: failed to read active layout: %w", err)
	}
	return inst.logic.Version(), set.Version, nil
}

// ActiveLayout returns the descriptor set live behind identity.
func (c *Coordinator) ActiveLayout(identity string) (layout.DescriptorSet, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return layout.DescriptorSet{}, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	set, err := inst.store.DescriptorSet()
	if err != nil {
		return layout.DescriptorSet{}, fmt.Errorf("coordinator: failed to read active layout: %w", err)
	}
	return set, nil
}

// The dispatch methods below are the stable call surface: they resolve the
// active logic under the read side of the barrier and delegate.

// CreateAuction dispatches to the active logic.
func (c *Coordinator) CreateAuction(identity string, p auction.CreateAuctionParams) (model.AuctionRecord, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return model.AuctionRecord{}, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.CreateAuction(p)
}

// PlaceBid dispatches to the active logic.
func (c *Coordinator) PlaceBid(identity, auctionID, bidder string, amount decimal.Decimal) (model.BidRecord, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return model.BidRecord{}, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.PlaceBid(auctionID, bidder, amount)
}

// Settle dispatches to the active logic.
func (c *Coordinator) Settle(identity, auctionID string) (model.AuctionRecord, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return model.AuctionRecord{}, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.Settle(auctionID)
}

// CancelAuction dispatches to the active logic.
func (c *Coordinator) CancelAuction(identity, auctionID, caller string) (model.AuctionRecord, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return model.AuctionRecord{}, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.CancelAuction(auctionID, caller)
}

// WithdrawEscrow dispatches to the active logic.
func (c *Coordinator) WithdrawEscrow(identity, auctionID, bidder string) (decimal.Decimal, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return decimal.Zero, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.WithdrawEscrow(auctionID, bidder)
}

// GetAuction dispatches to the active logic.
func (c *Coordinator) GetAuction(identity, auctionID string) (model.AuctionRecord, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return model.AuctionRecord{}, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.GetAuction(auctionID)
}

// GetBids dispatches to the active logic.
func (c *Coordinator) GetBids(identity, auctionID string) ([]model.BidRecord, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return nil, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.GetBids(auctionID)
}

// GetEscrowBalance dispatches to the active logic.
func (c *Coordinator) GetEscrowBalance(identity, auctionID, bidder string) (decimal.Decimal, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return decimal.Zero, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.GetEscrowBalance(auctionID, bidder)
}

// GetEscrowBalances dispatches to the active logic.
func (c *Coordinator) GetEscrowBalances(identity, auctionID string) (map[string]decimal.Decimal, error) {
	inst, err := c.instanceFor(identity)
	if err != nil {
		return nil, err
	}
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.logic.GetEscrowBalances(auctionID)
}
