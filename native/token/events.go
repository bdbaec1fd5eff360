package token

import (
	"encoding/hex"
	"math/big"

	"nftmarket/core/types"
)

const (
	EventTypeTokenMinted      = "token.minted"
	EventTypeTokenApproved    = "token.approved"
	EventTypeTokenTransferred = "token.transferred"
)

type ledgerEvent struct {
	evt *types.Event
}

func (e ledgerEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e ledgerEvent) Event() *types.Event { return e.evt }

func NewMintEvent(token, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTokenMinted, Attributes: map[string]string{
		"token":  hex.EncodeToString(token[:]),
		"to":     hex.EncodeToString(to[:]),
		"amount": amount.String(),
	}}
}

func NewApprovalEvent(token, owner, spender [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTokenApproved, Attributes: map[string]string{
		"token":   hex.EncodeToString(token[:]),
		"owner":   hex.EncodeToString(owner[:]),
		"spender": hex.EncodeToString(spender[:]),
		"amount":  amount.String(),
	}}
}

func NewTransferEvent(token, from, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTokenTransferred, Attributes: map[string]string{
		"token":  hex.EncodeToString(token[:]),
		"from":   hex.EncodeToString(from[:]),
		"to":     hex.EncodeToString(to[:]),
		"amount": amount.String(),
	}}
}
