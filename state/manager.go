package state

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"nftmarket/core/types"
	"nftmarket/native/market"
	"nftmarket/native/registry"
	"nftmarket/storage"
)

const (
	prefixListing   = "market/listing/"
	prefixAuction   = "market/auction/"
	prefixAccount   = "accounts/"
	prefixAsset     = "assets/item/"
	keyAssetSeq     = "assets/seq"
	prefixBalance   = "token/balance/"
	prefixAllowance = "token/allowance/"
	prefixRole      = "roles/"
)

// Manager implements the state interfaces of the market, registry and token
// engines on top of a key-value database. Records are JSON encoded under
// typed key prefixes; the role set doubles as the capability store seeded
// from configuration.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func listingKey(id uint64) []byte { return []byte(prefixListing + strconv.FormatUint(id, 10)) }
func auctionKey(id uint64) []byte { return []byte(prefixAuction + strconv.FormatUint(id, 10)) }
func assetKey(id uint64) []byte   { return []byte(prefixAsset + strconv.FormatUint(id, 10)) }

func accountKey(addr []byte) []byte {
	return []byte(prefixAccount + hex.EncodeToString(addr))
}

func balanceKey(token, holder [20]byte) []byte {
	return []byte(prefixBalance + hex.EncodeToString(token[:]) + "/" + hex.EncodeToString(holder[:]))
}

func allowanceKey(token, owner, spender [20]byte) []byte {
	return []byte(prefixAllowance + hex.EncodeToString(token[:]) + "/" + hex.EncodeToString(owner[:]) + "/" + hex.EncodeToString(spender[:]))
}

func roleKey(role string, addr []byte) []byte {
	return []byte(prefixRole + role + "/" + hex.EncodeToString(addr))
}

func (m *Manager) putJSON(key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

func (m *Manager) getJSON(key []byte, v interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if err == storage.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// --- market state ---

func (m *Manager) ListingPut(l *market.Listing) error {
	sanitized, err := market.SanitizeListing(l)
	if err != nil {
		return err
	}
	return m.putJSON(listingKey(sanitized.AssetID), sanitized)
}

func (m *Manager) ListingGet(assetID uint64) (*market.Listing, bool) {
	listing := new(market.Listing)
	ok, err := m.getJSON(listingKey(assetID), listing)
	if err != nil || !ok {
		return nil, false
	}
	return listing, true
}

func (m *Manager) ListingDelete(assetID uint64) error {
	return m.db.Delete(listingKey(assetID))
}

func (m *Manager) AuctionPut(a *market.Auction) error {
	sanitized, err := market.SanitizeAuction(a)
	if err != nil {
		return err
	}
	return m.putJSON(auctionKey(sanitized.AssetID), sanitized)
}

func (m *Manager) AuctionGet(assetID uint64) (*market.Auction, bool) {
	auction := new(market.Auction)
	ok, err := m.getJSON(auctionKey(assetID), auction)
	if err != nil || !ok {
		return nil, false
	}
	return auction, true
}

func (m *Manager) AuctionDelete(assetID uint64) error {
	return m.db.Delete(auctionKey(assetID))
}

func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	account := new(types.Account)
	ok, err := m.getJSON(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{BalanceNative: big.NewInt(0)}, nil
	}
	if account.BalanceNative == nil {
		account.BalanceNative = big.NewInt(0)
	}
	return account, nil
}

func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.putJSON(accountKey(addr), account)
}

// --- registry state ---

func (m *Manager) AssetPut(a *registry.Asset) error {
	sanitized, err := registry.SanitizeAsset(a)
	if err != nil {
		return err
	}
	return m.putJSON(assetKey(sanitized.ID), sanitized)
}

func (m *Manager) AssetGet(id uint64) (*registry.Asset, bool) {
	asset := new(registry.Asset)
	ok, err := m.getJSON(assetKey(id), asset)
	if err != nil || !ok {
		return nil, false
	}
	return asset, true
}

// AssetNextID hands out sequential asset identifiers starting at zero.
func (m *Manager) AssetNextID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := uint64(0)
	raw, err := m.db.Get([]byte(keyAssetSeq))
	if err == nil {
		if len(raw) != 8 {
			return 0, fmt.Errorf("state: corrupt asset sequence")
		}
		next = binary.BigEndian.Uint64(raw)
	} else if err != storage.ErrNotFound {
		return 0, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next+1)
	if err := m.db.Put([]byte(keyAssetSeq), buf); err != nil {
		return 0, err
	}
	return next, nil
}

// --- token ledger state ---

func (m *Manager) TokenBalance(token, holder [20]byte) (*big.Int, error) {
	return m.getAmount(balanceKey(token, holder))
}

func (m *Manager) TokenSetBalance(token, holder [20]byte, amount *big.Int) error {
	return m.setAmount(balanceKey(token, holder), amount)
}

func (m *Manager) TokenAllowance(token, owner, spender [20]byte) (*big.Int, error) {
	return m.getAmount(allowanceKey(token, owner, spender))
}

func (m *Manager) TokenSetAllowance(token, owner, spender [20]byte, amount *big.Int) error {
	return m.setAmount(allowanceKey(token, owner, spender), amount)
}

func (m *Manager) getAmount(key []byte) (*big.Int, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if err == storage.ErrNotFound {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	amount, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: corrupt amount at %s", key)
	}
	return amount, nil
}

func (m *Manager) setAmount(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: amount must be non-negative")
	}
	return m.db.Put(key, []byte(amount.String()))
}

// --- roles ---

// GrantRole records the capability for an address. Used at startup to seed
// the minter and token admin sets from configuration.
func (m *Manager) GrantRole(role string, addr []byte) error {
	return m.db.Put(roleKey(role, addr), []byte{1})
}

// RevokeRole removes the capability for an address.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	return m.db.Delete(roleKey(role, addr))
}

// HasRole reports whether the address holds the capability.
func (m *Manager) HasRole(role string, addr []byte) bool {
	ok, err := m.db.Has(roleKey(role, addr))
	return err == nil && ok
}
