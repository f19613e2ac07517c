package store

import (
	"fmt"
	"time"

	"auction-ledger/internal/layout"
	"auction-ledger/internal/ledgererrors"
	model "auction-ledger/internal/models"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

// The codec turns records into canonical CBOR slot arrays governed by the
// active descriptor. The descriptor decides which fields are written and in
// which slot order, so bytes produced under an older descriptor stay readable
// under any compatible extension: missing trailing slots decode as zero
// values.

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: cbor canonical encode mode: %v", err))
	}
}

// EncodeAuction serializes rec under desc. A field declared by desc that the
// codec does not know fails ErrLayoutMismatch; nothing is committed.
func EncodeAuction(rec model.AuctionRecord, desc layout.Descriptor) ([]byte, error) {
	slots := make([]any, len(desc.Fields))
	for i, f := range desc.Fields {
		v, err := auctionFieldValue(rec, f)
		if err != nil {
			return nil, err
		}
		slots[i] = v
	}
	return encMode.Marshal(slots)
}

// DecodeAuction reverses EncodeAuction. Slots beyond the encoded length are
// left at their zero values, which is how records written under an older
// compatible descriptor are read.
func DecodeAuction(data []byte, desc layout.Descriptor) (model.AuctionRecord, error) {
	var slots []any
	if err := cbor.Unmarshal(data, &slots); err != nil {
		return model.AuctionRecord{}, fmt.Errorf("decode auction record: %w", ledgererrors.ErrLayoutMismatch)
	}
	var rec model.AuctionRecord
	for i, f := range desc.Fields {
		if i >= len(slots) {
			break
		}
		if err := setAuctionField(&rec, f, slots[i]); err != nil {
			return model.AuctionRecord{}, err
		}
	}
	return rec, nil
}

// EncodeBid serializes a bid record under desc.
func EncodeBid(rec model.BidRecord, desc layout.Descriptor) ([]byte, error) {
	slots := make([]any, len(desc.Fields))
	for i, f := range desc.Fields {
		var v any
		switch f.Name {
		case "bid_id":
			v = rec.BidID
		case "auction_id":
			v = rec.AuctionID
		case "bidder":
			v = rec.Bidder
		case "amount":
			v = rec.Amount.String()
		case "timestamp":
			v = rec.Timestamp.Unix()
		default:
			return nil, fmt.Errorf("bid field %q: %w", f.Name, ledgererrors.ErrLayoutMismatch)
		}
		slots[i] = v
	}
	return encMode.Marshal(slots)
}

// DecodeBid reverses EncodeBid.
func DecodeBid(data []byte, desc layout.Descriptor) (model.BidRecord, error) {
	var slots []any
	if err := cbor.Unmarshal(data, &slots); err != nil {
		return model.BidRecord{}, fmt.Errorf("decode bid record: %w", ledgererrors.ErrLayoutMismatch)
	}
	var rec model.BidRecord
	for i, f := range desc.Fields {
		if i >= len(slots) {
			break
		}
		switch f.Name {
		case "bid_id":
			rec.BidID, _ = slots[i].(string)
		case "auction_id":
			rec.AuctionID, _ = slots[i].(string)
		case "bidder":
			rec.Bidder, _ = slots[i].(string)
		case "amount":
			amt, err := decodeAmount(slots[i], f)
			if err != nil {
				return model.BidRecord{}, err
			}
			rec.Amount = amt
		case "timestamp":
			rec.Timestamp = decodeTime(slots[i])
		default:
			return model.BidRecord{}, fmt.Errorf("bid field %q: %w", f.Name, ledgererrors.ErrLayoutMismatch)
		}
	}
	return rec, nil
}

// EncodeEscrow serializes an escrow balance under desc.
func EncodeEscrow(rec model.EscrowBalance, desc layout.Descriptor) ([]byte, error) {
	slots := make([]any, len(desc.Fields))
	for i, f := range desc.Fields {
		var v any
		switch f.Name {
		case "auction_id":
			v = rec.AuctionID
		case "bidder":
			v = rec.Bidder
		case "amount":
			v = rec.Amount.String()
		default:
			return nil, fmt.Errorf("escrow field %q: %w", f.Name, ledgererrors.ErrLayoutMismatch)
		}
		slots[i] = v
	}
	return encMode.Marshal(slots)
}

// DecodeEscrow reverses EncodeEscrow.
func DecodeEscrow(data []byte, desc layout.Descriptor) (model.EscrowBalance, error) {
	var slots []any
	if err := cbor.Unmarshal(data, &slots); err != nil {
		return model.EscrowBalance{}, fmt.Errorf("decode escrow record: %w", ledgererrors.ErrLayoutMismatch)
	}
	var rec model.EscrowBalance
	for i, f := range desc.Fields {
		if i >= len(slots) {
			break
		}
		switch f.Name {
		case "auction_id":
			rec.AuctionID, _ = slots[i].(string)
		case "bidder":
			rec.Bidder, _ = slots[i].(string)
		case "amount":
			amt, err := decodeAmount(slots[i], f)
			if err != nil {
				return model.EscrowBalance{}, err
			}
			rec.Amount = amt
		default:
			return model.EscrowBalance{}, fmt.Errorf("escrow field %q: %w", f.Name, ledgererrors.ErrLayoutMismatch)
		}
	}
	return rec, nil
}

func auctionFieldValue(rec model.AuctionRecord, f layout.Field) (any, error) {
	switch f.Name {
	case "auction_id":
		return rec.AuctionID, nil
	case "seller":
		return rec.Seller, nil
	case "asset_contract":
		return rec.Asset.Contract, nil
	case "asset_token_id":
		return rec.Asset.TokenID, nil
	case "reserve_price":
		return rec.ReservePrice.String(), nil
	case "start_time":
		return rec.StartTime.Unix(), nil
	case "duration":
		return int64(rec.Duration / time.Second), nil
	case "payment_token":
		return rec.PaymentToken, nil
	case "phase":
		return uint64(rec.Phase), nil
	case "highest_bid":
		if !rec.HasBid {
			return nil, nil
		}
		return rec.HighestBid.String(), nil
	case "highest_bidder":
		if !rec.HasBid {
			return nil, nil
		}
		return rec.HighestBidder, nil
	case "escrowed_amount":
		return rec.EscrowedAmount.String(), nil
	case "settled_at":
		if rec.SettledAt.IsZero() {
			return nil, nil
		}
		return rec.SettledAt.Unix(), nil
	default:
		return nil, fmt.Errorf("auction field %q: %w", f.Name, ledgererrors.ErrLayoutMismatch)
	}
}

func setAuctionField(rec *model.AuctionRecord, f layout.Field, v any) error {
	switch f.Name {
	case "auction_id":
		rec.AuctionID, _ = v.(string)
	case "seller":
		rec.Seller, _ = v.(string)
	case "asset_contract":
		rec.Asset.Contract, _ = v.(string)
	case "asset_token_id":
		rec.Asset.TokenID = decodeUint(v)
	case "reserve_price":
		amt, err := decodeAmount(v, f)
		if err != nil {
			return err
		}
		rec.ReservePrice = amt
	case "start_time":
		rec.StartTime = decodeTime(v)
	case "duration":
		rec.Duration = time.Duration(decodeInt(v)) * time.Second
	case "payment_token":
		rec.PaymentToken, _ = v.(string)
	case "phase":
		rec.Phase = model.Phase(decodeUint(v))
	case "highest_bid":
		if v == nil {
			return nil
		}
		amt, err := decodeAmount(v, f)
		if err != nil {
			return err
		}
		rec.HighestBid = amt
		rec.HasBid = true
	case "highest_bidder":
		if v == nil {
			return nil
		}
		rec.HighestBidder, _ = v.(string)
	case "escrowed_amount":
		amt, err := decodeAmount(v, f)
		if err != nil {
			return err
		}
		rec.EscrowedAmount = amt
	case "settled_at":
		if v == nil {
			return nil
		}
		rec.SettledAt = decodeTime(v)
	default:
		return fmt.Errorf("auction field %q: %w", f.Name, ledgererrors.ErrLayoutMismatch)
	}
	return nil
}

func decodeAmount(v any, f layout.Field) (decimal.Decimal, error) {
	if v == nil && f.Nullable {
		return decimal.Zero, nil
	}
	s, ok := v.(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("field %q is not an amount: %w", f.Name, ledgererrors.ErrLayoutMismatch)
	}
	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("field %q amount %q: %w", f.Name, s, ledgererrors.ErrLayoutMismatch)
	}
	return amt, nil
}

func decodeTime(v any) time.Time {
	sec := decodeInt(v)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// CBOR integers decode as uint64 or int64 depending on sign.
func decodeInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func decodeUint(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	default:
		return 0
	}
}
