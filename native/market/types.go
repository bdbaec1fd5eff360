package market

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// CurrencyKind selects the payment rail used by a listing or auction.
type CurrencyKind uint8

const (
	// CurrencyNative settles in the native value ledger.
	CurrencyNative CurrencyKind = iota
	// CurrencyToken settles in a fungible token identified by its address.
	CurrencyToken
)

// Currency is the rail selector resolved once when a listing or auction is
// created and carried immutably in the record. Token is only meaningful for
// CurrencyToken.
type Currency struct {
	Kind  CurrencyKind `json:"kind"`
	Token [20]byte     `json:"token"`
}

// NativeCurrency returns the native-rail selector.
func NativeCurrency() Currency {
	return Currency{Kind: CurrencyNative}
}

// TokenCurrency returns a token-rail selector for the given token address.
func TokenCurrency(token [20]byte) Currency {
	return Currency{Kind: CurrencyToken, Token: token}
}

// Valid reports whether the currency is well formed: token rails require a
// non-zero token address, native rails must not carry one.
func (c Currency) Valid() bool {
	switch c.Kind {
	case CurrencyNative:
		return c.Token == [20]byte{}
	case CurrencyToken:
		return c.Token != [20]byte{}
	default:
		return false
	}
}

func (c Currency) String() string {
	if c.Kind == CurrencyNative {
		return "native"
	}
	return hex.EncodeToString(c.Token[:])
}

// Listing is a fixed-price offer for a single asset. It exists iff the asset
// is currently for sale; the asset itself sits in market custody for the
// lifetime of the record.
type Listing struct {
	AssetID   uint64   `json:"assetId"`
	Seller    [20]byte `json:"seller"`
	Currency  Currency `json:"currency"`
	Price     *big.Int `json:"price"`
	CreatedAt int64    `json:"createdAt"`
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Auction is a live English auction for a single asset. CurrentBid holds the
// starting price until the first bid is accepted, after which it tracks the
// highest escrowed bid. HighestBidder is the zero address while BidCount is
// zero.
type Auction struct {
	AssetID       uint64   `json:"assetId"`
	Seller        [20]byte `json:"seller"`
	Currency      Currency `json:"currency"`
	CurrentBid    *big.Int `json:"currentBid"`
	MinStep       *big.Int `json:"minStep"`
	BidCount      uint32   `json:"bidCount"`
	HighestBidder [20]byte `json:"highestBidder"`
	StartTime     int64    `json:"startTime"`
	EndTime       int64    `json:"endTime"`
}

// Clone returns a deep copy of the auction.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	if a.CurrentBid != nil {
		clone.CurrentBid = new(big.Int).Set(a.CurrentBid)
	} else {
		clone.CurrentBid = big.NewInt(0)
	}
	if a.MinStep != nil {
		clone.MinStep = new(big.Int).Set(a.MinStep)
	} else {
		clone.MinStep = big.NewInt(0)
	}
	return &clone
}

// SanitizeListing validates the supplied listing and returns a cloned
// instance with non-nil amounts. The function does not mutate the original.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("market: nil listing")
	}
	clone := l.Clone()
	if !clone.Currency.Valid() {
		return nil, fmt.Errorf("market: invalid listing currency")
	}
	if clone.Seller == ([20]byte{}) {
		return nil, fmt.Errorf("market: listing seller required")
	}
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("market: listing price must be positive")
	}
	return clone, nil
}

// SanitizeAuction validates the supplied auction and returns a cloned
// instance with non-nil amounts. The function does not mutate the original.
func SanitizeAuction(a *Auction) (*Auction, error) {
	if a == nil {
		return nil, fmt.Errorf("market: nil auction")
	}
	clone := a.Clone()
	if !clone.Currency.Valid() {
		return nil, fmt.Errorf("market: invalid auction currency")
	}
	if clone.Seller == ([20]byte{}) {
		return nil, fmt.Errorf("market: auction seller required")
	}
	if clone.CurrentBid.Sign() <= 0 {
		return nil, fmt.Errorf("market: auction price must be positive")
	}
	if clone.MinStep.Sign() <= 0 {
		return nil, fmt.Errorf("market: auction step must be positive")
	}
	if clone.EndTime <= clone.StartTime {
		return nil, fmt.Errorf("market: auction window must be non-empty")
	}
	if clone.BidCount == 0 && clone.HighestBidder != ([20]byte{}) {
		return nil, fmt.Errorf("market: bidder recorded without bids")
	}
	if clone.BidCount > 0 && clone.HighestBidder == ([20]byte{}) {
		return nil, fmt.Errorf("market: bids recorded without bidder")
	}
	return clone, nil
}
