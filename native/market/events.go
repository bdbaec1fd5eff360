package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"nftmarket/core/types"
)

const (
	EventTypeItemListed       = "market.item.listed"
	EventTypeItemSold         = "market.item.sold"
	EventTypeListingCancelled = "market.listing.cancelled"
	EventTypeAuctionListed    = "market.auction.listed"
	EventTypeAuctionBid       = "market.auction.bid"
	EventTypeAuctionFinished  = "market.auction.finished"
	EventTypeAuctionCancelled = "market.auction.cancelled"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// NewItemListedEvent returns the canonical payload for a new fixed-price
// listing.
func NewItemListedEvent(l *Listing) *types.Event {
	attrs := make(map[string]string)
	if l != nil {
		attrs["assetId"] = strconv.FormatUint(l.AssetID, 10)
		attrs["seller"] = hex.EncodeToString(l.Seller[:])
		attrs["currency"] = l.Currency.String()
		attrs["price"] = l.Price.String()
	}
	return &types.Event{Type: EventTypeItemListed, Attributes: attrs}
}

// NewItemSoldEvent returns the canonical payload for a completed purchase.
func NewItemSoldEvent(l *Listing, buyer [20]byte) *types.Event {
	attrs := make(map[string]string)
	if l != nil {
		attrs["assetId"] = strconv.FormatUint(l.AssetID, 10)
		attrs["buyer"] = hex.EncodeToString(buyer[:])
		attrs["price"] = l.Price.String()
	}
	return &types.Event{Type: EventTypeItemSold, Attributes: attrs}
}

// NewListingCancelledEvent returns the canonical payload for a withdrawn
// listing.
func NewListingCancelledEvent(l *Listing) *types.Event {
	attrs := make(map[string]string)
	if l != nil {
		attrs["assetId"] = strconv.FormatUint(l.AssetID, 10)
		attrs["seller"] = hex.EncodeToString(l.Seller[:])
	}
	return &types.Event{Type: EventTypeListingCancelled, Attributes: attrs}
}

// NewAuctionListedEvent returns the canonical payload for a newly opened
// auction, carrying both window bounds.
func NewAuctionListedEvent(a *Auction) *types.Event {
	attrs := make(map[string]string)
	if a != nil {
		attrs["assetId"] = strconv.FormatUint(a.AssetID, 10)
		attrs["seller"] = hex.EncodeToString(a.Seller[:])
		attrs["currency"] = a.Currency.String()
		attrs["startingPrice"] = a.CurrentBid.String()
		attrs["minStep"] = a.MinStep.String()
		attrs["startTime"] = strconv.FormatInt(a.StartTime, 10)
		attrs["endTime"] = strconv.FormatInt(a.EndTime, 10)
	}
	return &types.Event{Type: EventTypeAuctionListed, Attributes: attrs}
}

// NewBidEvent returns the canonical payload for an accepted bid.
func NewBidEvent(a *Auction, bidder [20]byte) *types.Event {
	attrs := make(map[string]string)
	if a != nil {
		attrs["assetId"] = strconv.FormatUint(a.AssetID, 10)
		attrs["bidder"] = hex.EncodeToString(bidder[:])
		attrs["amount"] = a.CurrentBid.String()
		attrs["bidCount"] = strconv.FormatUint(uint64(a.BidCount), 10)
	}
	return &types.Event{Type: EventTypeAuctionBid, Attributes: attrs}
}

// NewAuctionFinishedEvent returns the canonical payload for a settled
// auction. Winner is the seller and amount zero when the auction failed to
// sell.
func NewAuctionFinishedEvent(a *Auction, winner [20]byte, amount *big.Int, ts int64) *types.Event {
	attrs := make(map[string]string)
	if a != nil {
		attrs["assetId"] = strconv.FormatUint(a.AssetID, 10)
		attrs["winner"] = hex.EncodeToString(winner[:])
		attrs["amount"] = amount.String()
		attrs["timestamp"] = strconv.FormatInt(ts, 10)
	}
	return &types.Event{Type: EventTypeAuctionFinished, Attributes: attrs}
}

// NewAuctionCancelledEvent returns the canonical payload for a cancelled
// auction.
func NewAuctionCancelledEvent(a *Auction, ts int64) *types.Event {
	attrs := make(map[string]string)
	if a != nil {
		attrs["assetId"] = strconv.FormatUint(a.AssetID, 10)
		attrs["seller"] = hex.EncodeToString(a.Seller[:])
		attrs["timestamp"] = strconv.FormatInt(ts, 10)
	}
	return &types.Event{Type: EventTypeAuctionCancelled, Attributes: attrs}
}
