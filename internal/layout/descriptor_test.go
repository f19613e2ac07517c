package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCompatibleExtension_V1ToV2(t *testing.T) {
	require.True(t, IsCompatibleExtension(V1(), V2()))
}

func TestIsCompatibleExtension_SameVersionRejected(t *testing.T) {
	require.False(t, IsCompatibleExtension(V1(), V1()))
}

func TestIsCompatibleExtension_VersionMustIncrease(t *testing.T) {
	require.False(t, IsCompatibleExtension(V2(), V1()))
}

func TestIsCompatibleExtension_DroppedFieldRejected(t *testing.T) {
	old := V1()
	candidate := V1()
	candidate.Version = 2

	// Drop the last auction field; every previously declared slot must
	// survive.
	candidate.Auction.Fields = candidate.Auction.Fields[:len(candidate.Auction.Fields)-1]

	require.False(t, IsCompatibleExtension(old, candidate))
}

func TestIsCompatibleExtension_RetypedFieldRejected(t *testing.T) {
	old := V1()
	candidate := V1()
	candidate.Version = 2
	candidate.Auction.Fields[4].Type = TypeString // reserve_price

	require.False(t, IsCompatibleExtension(old, candidate))
}

func TestIsCompatibleExtension_RenamedFieldRejected(t *testing.T) {
	old := V1()
	candidate := V1()
	candidate.Version = 2
	candidate.Auction.Fields[1].Name = "owner" // seller

	require.False(t, IsCompatibleExtension(old, candidate))
}

func TestIsCompatibleExtension_NonContiguousSlotRejected(t *testing.T) {
	old := V1()
	candidate := V1()
	candidate.Version = 2
	candidate.Auction.Fields = append(candidate.Auction.Fields,
		Field{Name: "settled_at", Type: TypeTime, Slot: 20, Nullable: true})

	require.False(t, IsCompatibleExtension(old, candidate))
}

func TestV2ExtendsAuctionOnly(t *testing.T) {
	v1, v2 := V1(), V2()

	require.Equal(t, uint64(2), v2.Version)
	require.Len(t, v2.Auction.Fields, len(v1.Auction.Fields)+1)
	require.Equal(t, v1.Bid, v2.Bid)
	require.Equal(t, v1.Escrow, v2.Escrow)

	added := v2.Auction.Fields[len(v2.Auction.Fields)-1]
	require.Equal(t, "settled_at", added.Name)
	require.True(t, added.Nullable)
}

func TestFieldByName(t *testing.T) {
	desc := V1().Auction

	f, ok := desc.FieldByName("highest_bid")
	require.True(t, ok)
	require.Equal(t, 9, f.Slot)
	require.Equal(t, TypeAmount, f.Type)

	_, ok = desc.FieldByName("no_such_field")
	require.False(t, ok)
}

func TestByKind(t *testing.T) {
	set := V1()

	for _, kind := range []string{KindAuction, KindBid, KindEscrow} {
		d, ok := set.ByKind(kind)
		require.True(t, ok)
		require.Equal(t, kind, d.Kind)
	}

	_, ok := set.ByKind("receipt")
	require.False(t, ok)
}
