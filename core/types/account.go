package types

import "math/big"

// Account tracks the native balance held by an address. Fungible token
// balances live in the token ledger and are keyed by token address, so they
// are not part of the account record.
type Account struct {
	Nonce         uint64   `json:"nonce"`
	BalanceNative *big.Int `json:"balanceNative"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.BalanceNative != nil {
		clone.BalanceNative = new(big.Int).Set(a.BalanceNative)
	} else {
		clone.BalanceNative = big.NewInt(0)
	}
	return &clone
}
