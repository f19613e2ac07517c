// Package layout defines the versioned storage layout descriptors that gate
// every ledger write and every logic upgrade. A descriptor is pure data: an
// ordered list of (field name, semantic type, slot index) tuples per record
// kind, plus a monotonically increasing version number. Descriptors are
// created at genesis and appended to by upgrades, never rewritten in place.
package layout

// SemanticType names the interpretation of a slot's value.
type SemanticType string

const (
	TypeString   SemanticType = "string"
	TypeUint     SemanticType = "uint"
	TypeAmount   SemanticType = "amount"   // decimal string
	TypeTime     SemanticType = "time"     // unix seconds
	TypeDuration SemanticType = "duration" // seconds
	TypeBool     SemanticType = "bool"
)

// Record kinds managed by the ledger store.
const (
	KindAuction = "auction"
	KindBid     = "bid"
	KindEscrow  = "escrow"
)

// Field declares one slot of a record kind.
type Field struct {
	Name string       `json:"name"`
	Type SemanticType `json:"type"`
	Slot int          `json:"slot"`

	// Nullable slots encode as CBOR null when the value is absent.
	Nullable bool `json:"nullable,omitempty"`
}

// Descriptor is the slot layout of one record kind. Fields are ordered by
// slot index, contiguous from zero.
type Descriptor struct {
	Kind   string  `json:"kind"`
	Fields []Field `json:"fields"`
}

// FieldByName returns the field declaration for name, if declared.
func (d Descriptor) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// DescriptorSet is the full layout of every record kind at one version.
type DescriptorSet struct {
	Version uint64     `json:"version"`
	Auction Descriptor `json:"auction"`
	Bid     Descriptor `json:"bid"`
	Escrow  Descriptor `json:"escrow"`
}

// ByKind returns the descriptor for the given record kind.
func (s DescriptorSet) ByKind(kind string) (Descriptor, bool) {
	switch kind {
	case KindAuction:
		return s.Auction, true
	case KindBid:
		return s.Bid, true
	case KindEscrow:
		return s.Escrow, true
	default:
		return Descriptor{}, false
	}
}

// IsCompatibleExtension reports whether new may supersede old: every
// (field, type, slot) tuple declared by old must appear identically in new,
// new fields may only be appended, and the version must strictly increase.
func IsCompatibleExtension(old, new DescriptorSet) bool {
	if new.Version <= old.Version {
		return false
	}
	return descriptorExtends(old.Auction, new.Auction) &&
		descriptorExtends(old.Bid, new.Bid) &&
		descriptorExtends(old.Escrow, new.Escrow)
}

func descriptorExtends(old, new Descriptor) bool {
	if old.Kind != new.Kind {
		return false
	}
	if len(new.Fields) < len(old.Fields) {
		return false
	}
	for i, f := range old.Fields {
		g := new.Fields[i]
		if g.Name != f.Name || g.Type != f.Type || g.Slot != f.Slot || g.Nullable != f.Nullable {
			return false
		}
	}
	// Appended fields must keep slot indices contiguous.
	for i, f := range new.Fields {
		if f.Slot != i {
			return false
		}
	}
	return true
}

// V1 is the genesis layout.
func V1() DescriptorSet {
	return DescriptorSet{
		Version: 1,
		Auction: Descriptor{
			Kind: KindAuction,
			Fields: []Field{
				{Name: "auction_id", Type: TypeString, Slot: 0},
				{Name: "seller", Type: TypeString, Slot: 1},
				{Name: "asset_contract", Type: TypeString, Slot: 2},
				{Name: "asset_token_id", Type: TypeUint, Slot: 3},
				{Name: "reserve_price", Type: TypeAmount, Slot: 4},
				{Name: "start_time", Type: TypeTime, Slot: 5},
				{Name: "duration", Type: TypeDuration, Slot: 6},
				{Name: "payment_token", Type: TypeString, Slot: 7},
				{Name: "phase", Type: TypeUint, Slot: 8},
				{Name: "highest_bid", Type: TypeAmount, Slot: 9, Nullable: true},
				{Name: "highest_bidder", Type: TypeString, Slot: 10, Nullable: true},
				{Name: "escrowed_amount", Type: TypeAmount, Slot: 11},
			},
		},
		Bid: Descriptor{
			Kind: KindBid,
			Fields: []Field{
				{Name: "bid_id", Type: TypeString, Slot: 0},
				{Name: "auction_id", Type: TypeString, Slot: 1},
				{Name: "bidder", Type: TypeString, Slot: 2},
				{Name: "amount", Type: TypeAmount, Slot: 3},
				{Name: "timestamp", Type: TypeTime, Slot: 4},
			},
		},
		Escrow: Descriptor{
			Kind: KindEscrow,
			Fields: []Field{
				{Name: "auction_id", Type: TypeString, Slot: 0},
				{Name: "bidder", Type: TypeString, Slot: 1},
				{Name: "amount", Type: TypeAmount, Slot: 2},
			},
		},
	}
}

// V2 appends settled_at to the auction kind and is otherwise identical to V1.
func V2() DescriptorSet {
	s := V1()
	s.Version = 2
	s.Auction.Fields = append(s.Auction.Fields,
		Field{Name: "settled_at", Type: TypeTime, Slot: 12, Nullable: true})
	return s
}
