package registry

import (
	"encoding/hex"
	"strconv"

	"nftmarket/core/types"
)

const (
	EventTypeAssetMinted      = "assets.minted"
	EventTypeAssetTransferred = "assets.transferred"
)

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

// NewMintedEvent returns the canonical payload for a freshly minted asset.
func NewMintedEvent(a *Asset) *types.Event {
	attrs := make(map[string]string)
	if a != nil {
		attrs["assetId"] = strconv.FormatUint(a.ID, 10)
		attrs["owner"] = hex.EncodeToString(a.Owner[:])
		attrs["uri"] = a.URI
		attrs["metaHash"] = hex.EncodeToString(a.MetaHash[:])
		attrs["createdAt"] = strconv.FormatInt(a.CreatedAt, 10)
	}
	return &types.Event{Type: EventTypeAssetMinted, Attributes: attrs}
}

// NewTransferredEvent returns the canonical payload emitted when an asset
// changes holder.
func NewTransferredEvent(a *Asset, from [20]byte) *types.Event {
	attrs := make(map[string]string)
	if a != nil {
		attrs["assetId"] = strconv.FormatUint(a.ID, 10)
		attrs["from"] = hex.EncodeToString(from[:])
		attrs["to"] = hex.EncodeToString(a.Owner[:])
	}
	return &types.Event{Type: EventTypeAssetTransferred, Attributes: attrs}
}
