package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-ledger/internal/layout"
	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"

	"github.com/fxamacker/cbor/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgOpTimeout = 5 * time.Second

var _ LedgerStore = (*PostgresStore)(nil)

// PostgresStore implements LedgerStore on PostgreSQL. Records are stored as
// the same canonical CBOR bytes the MemoryStore holds; the database adds
// durability, not interpretation. Each Commit* method runs in one
// transaction, so a crash mid-operation never leaves a partial state
// transition behind. The active descriptor set is persisted in its own table
// so inspection tooling can read records without knowing which logic version
// is live.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL, creates the schema if missing,
// and installs genesis as the active layout when none is recorded yet.
func NewPostgresStore(ctx context.Context, databaseURL string, genesis layout.DescriptorSet) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx, genesis); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context, genesis layout.DescriptorSet) error {
	schema := `
		CREATE TABLE IF NOT EXISTS auctions (
			auction_id TEXT PRIMARY KEY,
			record     BYTEA NOT NULL
		);
		CREATE TABLE IF NOT EXISTS bids (
			seq        BIGSERIAL PRIMARY KEY,
			auction_id TEXT NOT NULL,
			record     BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS bids_auction_idx ON bids (auction_id, seq);
		CREATE TABLE IF NOT EXISTS escrow (
			auction_id TEXT NOT NULL,
			bidder     TEXT NOT NULL,
			record     BYTEA NOT NULL,
			PRIMARY KEY (auction_id, bidder)
		);
		CREATE TABLE IF NOT EXISTS storage_layout (
			version    BIGINT PRIMARY KEY,
			descriptor BYTEA NOT NULL,
			active     BOOLEAN NOT NULL DEFAULT FALSE
		);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM storage_layout`).Scan(&n); err != nil {
		return fmt.Errorf("failed to inspect storage_layout: %w", err)
	}
	if n == 0 {
		data, err := cbor.Marshal(genesis)
		if err != nil {
			return fmt.Errorf("failed to encode genesis layout: %w", err)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO storage_layout (version, descriptor, active) VALUES ($1, $2, TRUE)
			 ON CONFLICT (version) DO NOTHING`,
			genesis.Version, data)
		if err != nil {
			return fmt.Errorf("failed to install genesis layout: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), pgOpTimeout)
}

func (s *PostgresStore) activeSet(ctx context.Context) (layout.DescriptorSet, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT descriptor FROM storage_layout WHERE active`).Scan(&data)
	if err != nil {
		return layout.DescriptorSet{}, fmt.Errorf("failed to load active layout: %w", err)
	}
	var set layout.DescriptorSet
	if err := cbor.Unmarshal(data, &set); err != nil {
		return layout.DescriptorSet{}, fmt.Errorf("failed to decode active layout: %w", err)
	}
	return set, nil
}

// Get returns the auction record, decoded under the active descriptor.
func (s *PostgresStore) Get(auctionID string) (model.AuctionRecord, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return model.AuctionRecord{}, err
	}
	var data []byte
	err = s.pool.QueryRow(ctx, `SELECT record FROM auctions WHERE auction_id = $1`, auctionID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AuctionRecord{}, fmt.Errorf("get auction %s: %w", auctionID, ledgererrors.ErrNotFound)
	}
	if err != nil {
		return model.AuctionRecord{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return DecodeAuction(data, set.Auction)
}

// Put validates rec against the active descriptor and upserts it.
func (s *PostgresStore) Put(auctionID string, rec model.AuctionRecord) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	data, err := EncodeAuction(rec, set.Auction)
	if err != nil {
		return fmt.Errorf("put auction %s: %w", auctionID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO auctions (auction_id, record) VALUES ($1, $2)
		 ON CONFLICT (auction_id) DO UPDATE SET record = EXCLUDED.record`,
		auctionID, data)
	if err != nil {
		return fmt.Errorf("put auction %s: %w", auctionID, err)
	}
	return nil
}

// BidsByAuction returns the auction's bid history in append order.
func (s *PostgresStore) BidsByAuction(auctionID string) ([]model.BidRecord, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return nil, err
	}
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE auction_id = $1)`, auctionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, ledgererrors.ErrNotFound)
	}

	rows, err := s.pool.Query(ctx, `SELECT record FROM bids WHERE auction_id = $1 ORDER BY seq`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var out []model.BidRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
		}
		rec, err := DecodeBid(data, set.Bid)
		if err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	return out, nil
}

// CommitBid applies the whole bid transition in one transaction: bid insert,
// outbid escrow credit, auction upsert.
func (s *PostgresStore) CommitBid(rec model.AuctionRecord, bid model.BidRecord, outbid *model.EscrowBalance) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE auction_id = $1)`, bid.AuctionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}
	if !exists {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, ledgererrors.ErrNotFound)
	}

	bidData, err := EncodeBid(bid, set.Bid)
	if err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO bids (auction_id, record) VALUES ($1, $2)`, bid.AuctionID, bidData); err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}

	if outbid != nil {
		if err := s.adjustEscrowTx(ctx, tx, set, *outbid, false); err != nil {
			return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
		}
	}
	if err := s.putTx(ctx, tx, set, rec.AuctionID, rec); err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, err)
	}
	return nil
}

// CommitSettlement stores the settled record and credits the proceeds in one
// transaction.
func (s *PostgresStore) CommitSettlement(rec model.AuctionRecord, proceeds model.EscrowBalance) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("commit settlement for auction %s: %w", rec.AuctionID, err)
	}
	defer tx.Rollback(ctx)

	if err := s.adjustEscrowTx(ctx, tx, set, proceeds, false); err != nil {
		return fmt.Errorf("commit settlement for auction %s: %w", rec.AuctionID, err)
	}
	if err := s.putTx(ctx, tx, set, rec.AuctionID, rec); err != nil {
		return fmt.Errorf("commit settlement for auction %s: %w", rec.AuctionID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement for auction %s: %w", rec.AuctionID, err)
	}
	return nil
}

// CommitWithdrawal debits the balance and, when rec is non-nil, upserts the
// auction record, all in one transaction.
func (s *PostgresStore) CommitWithdrawal(debit model.EscrowBalance, rec *model.AuctionRecord) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, err)
	}
	defer tx.Rollback(ctx)

	if err := s.adjustEscrowTx(ctx, tx, set, debit, true); err != nil {
		return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, err)
	}
	if rec != nil {
		if err := s.putTx(ctx, tx, set, rec.AuctionID, *rec); err != nil {
			return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit withdrawal for %s/%s: %w", debit.AuctionID, debit.Bidder, err)
	}
	return nil
}

func (s *PostgresStore) putTx(ctx context.Context, tx pgx.Tx, set layout.DescriptorSet, auctionID string, rec model.AuctionRecord) error {
	data, err := EncodeAuction(rec, set.Auction)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO auctions (auction_id, record) VALUES ($1, $2)
		 ON CONFLICT (auction_id) DO UPDATE SET record = EXCLUDED.record`,
		auctionID, data)
	return err
}

// adjustEscrowTx does the read-modify-write of one escrow balance inside the
// caller's transaction. The row lock serializes concurrent adjustments.
func (s *PostgresStore) adjustEscrowTx(ctx context.Context, tx pgx.Tx, set layout.DescriptorSet, delta model.EscrowBalance, debit bool) error {
	bal := model.EscrowBalance{AuctionID: delta.AuctionID, Bidder: delta.Bidder, Amount: decimal.Zero}
	var data []byte
	err := tx.QueryRow(ctx,
		`SELECT record FROM escrow WHERE auction_id = $1 AND bidder = $2 FOR UPDATE`,
		delta.AuctionID, delta.Bidder).Scan(&data)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err == nil {
		bal, err = DecodeEscrow(data, set.Escrow)
		if err != nil {
			return err
		}
	}

	if debit {
		if bal.Amount.LessThan(delta.Amount) {
			return ledgererrors.ErrInsufficientEscrow
		}
		bal.Amount = bal.Amount.Sub(delta.Amount)
	} else {
		bal.Amount = bal.Amount.Add(delta.Amount)
	}

	encoded, err := EncodeEscrow(bal, set.Escrow)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO escrow (auction_id, bidder, record) VALUES ($1, $2, $3)
		 ON CONFLICT (auction_id, bidder) DO UPDATE SET record = EXCLUDED.record`,
		delta.AuctionID, delta.Bidder, encoded)
	return err
}

// EscrowBalance returns the balance for (auction, bidder); zero when absent.
func (s *PostgresStore) EscrowBalance(auctionID, bidder string) (decimal.Decimal, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var data []byte
	err = s.pool.QueryRow(ctx,
		`SELECT record FROM escrow WHERE auction_id = $1 AND bidder = $2`,
		auctionID, bidder).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("escrow balance for %s/%s: %w", auctionID, bidder, err)
	}
	bal, err := DecodeEscrow(data, set.Escrow)
	if err != nil {
		return decimal.Zero, fmt.Errorf("escrow balance for %s/%s: %w", auctionID, bidder, err)
	}
	return bal.Amount, nil
}

// EscrowBalances returns every recorded balance for the auction.
func (s *PostgresStore) EscrowBalances(auctionID string) (map[string]decimal.Decimal, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT record FROM escrow WHERE auction_id = $1`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("escrow balances for %s: %w", auctionID, err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("escrow balances for %s: %w", auctionID, err)
		}
		bal, err := DecodeEscrow(data, set.Escrow)
		if err != nil {
			return nil, fmt.Errorf("escrow balances for %s: %w", auctionID, err)
		}
		out[bal.Bidder] = bal.Amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("escrow balances for %s: %w", auctionID, err)
	}
	return out, nil
}

// DescriptorSet returns the active layout.
func (s *PostgresStore) DescriptorSet() (layout.DescriptorSet, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return s.activeSet(ctx)
}

// SetDescriptorSet records the new layout version and marks it active. Prior
// versions are kept; the layout history is itself an audit trail. Activating
// a version older than the current one fails ErrIncompatibleLayout: records
// may already carry slots the older descriptor does not know.
func (s *PostgresStore) SetDescriptorSet(set layout.DescriptorSet) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	data, err := cbor.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode layout v%d: %w", set.Version, err)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to activate layout v%d: %w", set.Version, err)
	}
	defer tx.Rollback(ctx)

	var current uint64
	err = tx.QueryRow(ctx, `SELECT version FROM storage_layout WHERE active FOR UPDATE`).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to activate layout v%d: %w", set.Version, err)
	}
	if err == nil && set.Version < current {
		return fmt.Errorf("activate layout v%d over v%d: %w",
			set.Version, current, ledgererrors.ErrIncompatibleLayout)
	}

	if _, err := tx.Exec(ctx, `UPDATE storage_layout SET active = FALSE WHERE active`); err != nil {
		return fmt.Errorf("failed to activate layout v%d: %w", set.Version, err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO storage_layout (version, descriptor, active) VALUES ($1, $2, TRUE)
		 ON CONFLICT (version) DO UPDATE SET descriptor = EXCLUDED.descriptor, active = TRUE`,
		set.Version, data)
	if err != nil {
		return fmt.Errorf("failed to activate layout v%d: %w", set.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to activate layout v%d: %w", set.Version, err)
	}
	return nil
}

// ForEachAuction visits every auction record in auction_id order.
func (s *PostgresStore) ForEachAuction(fn func(auctionID string, rec model.AuctionRecord) error) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	rows, err := s.pool.Query(ctx, `SELECT auction_id, record FROM auctions ORDER BY auction_id`)
	if err != nil {
		return fmt.Errorf("scan auctions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return fmt.Errorf("scan auctions: %w", err)
		}
		rec, err := DecodeAuction(data, set.Auction)
		if err != nil {
			return fmt.Errorf("scan auctions: %w", err)
		}
		if err := fn(id, rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ForEachBid visits every bid record in insertion order.
func (s *PostgresStore) ForEachBid(fn func(bid model.BidRecord) error) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	rows, err := s.pool.Query(ctx, `SELECT record FROM bids ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("scan bids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scan bids: %w", err)
		}
		bid, err := DecodeBid(data, set.Bid)
		if err != nil {
			return fmt.Errorf("scan bids: %w", err)
		}
		if err := fn(bid); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ForEachEscrow visits every escrow balance in (auction_id, bidder) order.
func (s *PostgresStore) ForEachEscrow(fn func(bal model.EscrowBalance) error) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	rows, err := s.pool.Query(ctx, `SELECT record FROM escrow ORDER BY auction_id, bidder`)
	if err != nil {
		return fmt.Errorf("scan escrow: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scan escrow: %w", err)
		}
		bal, err := DecodeEscrow(data, set.Escrow)
		if err != nil {
			return fmt.Errorf("scan escrow: %w", err)
		}
		if err := fn(bal); err != nil {
			return err
		}
	}
	return rows.Err()
}
