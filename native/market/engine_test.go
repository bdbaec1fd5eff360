package market

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

const testDuration int64 = 3 * 24 * 60 * 60

type mockState struct {
	listings map[uint64]*Listing
	auctions map[uint64]*Auction
	accounts map[[20]byte]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		listings: make(map[uint64]*Listing),
		auctions: make(map[uint64]*Auction),
		accounts: make(map[[20]byte]*types.Account),
	}
}

func (m *mockState) ListingPut(l *Listing) error {
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return err
	}
	m.listings[sanitized.AssetID] = sanitized.Clone()
	return nil
}

func (m *mockState) ListingGet(assetID uint64) (*Listing, bool) {
	listing, ok := m.listings[assetID]
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

func (m *mockState) ListingDelete(assetID uint64) error {
	delete(m.listings, assetID)
	return nil
}

func (m *mockState) AuctionPut(a *Auction) error {
	sanitized, err := SanitizeAuction(a)
	if err != nil {
		return err
	}
	m.auctions[sanitized.AssetID] = sanitized.Clone()
	return nil
}

func (m *mockState) AuctionGet(assetID uint64) (*Auction, bool) {
	auction, ok := m.auctions[assetID]
	if !ok {
		return nil, false
	}
	return auction.Clone(), true
}

func (m *mockState) AuctionDelete(assetID uint64) error {
	delete(m.auctions, assetID)
	return nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	account, ok := m.accounts[key]
	if !ok {
		return &types.Account{BalanceNative: big.NewInt(0)}, nil
	}
	return account.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func (m *mockState) setBalance(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{BalanceNative: big.NewInt(amount)}
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	account, ok := m.accounts[addr]
	if !ok || account.BalanceNative == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(account.BalanceNative)
}

// mockAssets is a minimal ownership provider tracking a single holder per
// asset.
type mockAssets struct {
	owners map[uint64][20]byte
}

func newMockAssets() *mockAssets {
	return &mockAssets{owners: make(map[uint64][20]byte)}
}

func (m *mockAssets) mint(id uint64, owner [20]byte) { m.owners[id] = owner }

func (m *mockAssets) OwnerOf(assetID uint64) ([20]byte, error) {
	owner, ok := m.owners[assetID]
	if !ok {
		return [20]byte{}, errors.New("asset not found")
	}
	return owner, nil
}

func (m *mockAssets) Transfer(assetID uint64, from, to [20]byte) error {
	owner, ok := m.owners[assetID]
	if !ok {
		return errors.New("asset not found")
	}
	if owner != from {
		return errors.New("transfer source is not the holder")
	}
	m.owners[assetID] = to
	return nil
}

// mockLedger is a single-token ledger with custodian-style allowances.
type mockLedger struct {
	balances   map[[20]byte]*big.Int
	allowances map[[20]byte]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[[20]byte]*big.Int),
	}
}

func (m *mockLedger) setBalance(addr [20]byte, amount int64) {
	m.balances[addr] = big.NewInt(amount)
}

func (m *mockLedger) approve(owner [20]byte, amount int64) {
	m.allowances[owner] = big.NewInt(amount)
}

func (m *mockLedger) balance(addr [20]byte) *big.Int {
	balance, ok := m.balances[addr]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

func (m *mockLedger) TransferFrom(tokenAddr, owner, to [20]byte, amount *big.Int) error {
	allowance, ok := m.allowances[owner]
	if !ok || allowance.Cmp(amount) < 0 {
		return errors.New("insufficient allowance")
	}
	if err := m.Transfer(tokenAddr, owner, to, amount); err != nil {
		return err
	}
	m.allowances[owner] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (m *mockLedger) Transfer(_ [20]byte, from, to [20]byte, amount *big.Int) error {
	balance, ok := m.balances[from]
	if !ok || balance.Cmp(amount) < 0 {
		return errors.New("insufficient balance")
	}
	m.balances[from] = new(big.Int).Sub(balance, amount)
	toBalance, ok := m.balances[to]
	if !ok {
		toBalance = big.NewInt(0)
	}
	m.balances[to] = new(big.Int).Add(toBalance, amount)
	return nil
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *capturingEmitter) seen(eventType string) bool {
	for _, evt := range c.events {
		if evt.EventType() == eventType {
			return true
		}
	}
	return false
}

func (c *capturingEmitter) last(eventType string) *types.Event {
	for i := len(c.events) - 1; i >= 0; i-- {
		wrapper, ok := c.events[i].(marketEvent)
		if ok && wrapper.evt != nil && wrapper.evt.Type == eventType {
			return wrapper.evt
		}
	}
	return nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type testEnv struct {
	engine  *Engine
	state   *mockState
	assets  *mockAssets
	ledger  *mockLedger
	emitter *capturingEmitter
	vault   [20]byte
	now     int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		state:   newMockState(),
		assets:  newMockAssets(),
		ledger:  newMockLedger(),
		emitter: &capturingEmitter{},
		vault:   newTestAddress(0xEE),
		now:     1_000,
	}
	engine := NewEngine()
	engine.SetState(env.state)
	engine.SetOwnership(env.assets)
	engine.SetTokenLedger(env.ledger)
	engine.SetVault(env.vault)
	engine.SetAuctionDuration(testDuration)
	engine.SetEmitter(env.emitter)
	engine.SetNowFunc(func() int64 { return env.now })
	env.engine = engine
	return env
}

func (env *testEnv) advance(seconds int64) { env.now += seconds }

var testToken = newTestAddress(0x70)

func TestListAndBuyNative(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	env.assets.mint(0, seller)
	env.state.setBalance(buyer, 1_000)

	listing, err := env.engine.ListItem(seller, 0, big.NewInt(100), NativeCurrency())
	if err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	if listing.Seller != seller || listing.Price.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != env.vault {
		t.Fatalf("asset not in custody")
	}
	if !env.emitter.seen(EventTypeItemListed) {
		t.Fatalf("expected listed event")
	}

	// Overpayment: only the price leaves the buyer.
	if err := env.engine.BuyItem(buyer, 0, big.NewInt(110)); err != nil {
		t.Fatalf("BuyItem: %v", err)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != buyer {
		t.Fatalf("asset not delivered to buyer")
	}
	if got := env.state.balance(buyer); got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("buyer debited %s, want net 100", new(big.Int).Sub(big.NewInt(1_000), got))
	}
	if got := env.state.balance(seller); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("seller credited %s, want 100", got)
	}
	if got := env.state.balance(env.vault); got.Sign() != 0 {
		t.Fatalf("vault retained %s", got)
	}
	if _, ok := env.state.ListingGet(0); ok {
		t.Fatalf("listing not destroyed")
	}
	if !env.emitter.seen(EventTypeItemSold) {
		t.Fatalf("expected sold event")
	}
}

func TestListItemValidation(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	intruder := newTestAddress(0x02)
	env.assets.mint(0, seller)

	if _, err := env.engine.ListItem(intruder, 0, big.NewInt(100), NativeCurrency()); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := env.engine.ListItem(seller, 0, big.NewInt(0), NativeCurrency()); err == nil {
		t.Fatalf("expected zero price rejection")
	}
	if _, err := env.engine.ListItem(seller, 0, big.NewInt(100), NativeCurrency()); err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	if _, err := env.engine.ListItem(seller, 0, big.NewInt(100), NativeCurrency()); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
	if _, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), NativeCurrency()); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed for auction on listed item, got %v", err)
	}
}

func TestBuyItemFailures(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	env.assets.mint(0, seller)
	env.state.setBalance(buyer, 1_000)

	if err := env.engine.BuyItem(buyer, 0, big.NewInt(100)); !errors.Is(err, ErrNotSelling) {
		t.Fatalf("expected ErrNotSelling, got %v", err)
	}
	if _, err := env.engine.ListItem(seller, 0, big.NewInt(100), NativeCurrency()); err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	if err := env.engine.BuyItem(buyer, 0, big.NewInt(10)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := env.engine.BuyItem(buyer, 0, nil); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for missing value, got %v", err)
	}
	// A failed purchase leaves the listing intact.
	if _, ok := env.state.ListingGet(0); !ok {
		t.Fatalf("listing destroyed by failed purchase")
	}
	if got := env.state.balance(buyer); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("failed purchase moved funds: %s", got)
	}
}

func TestListAndBuyToken(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	env.assets.mint(0, seller)
	env.ledger.setBalance(buyer, 1_000)

	if _, err := env.engine.ListItem(seller, 0, big.NewInt(100), TokenCurrency(testToken)); err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	// No allowance yet.
	if err := env.engine.BuyItem(buyer, 0, nil); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds without approval, got %v", err)
	}
	env.ledger.approve(buyer, 100)
	if err := env.engine.BuyItem(buyer, 0, nil); err != nil {
		t.Fatalf("BuyItem: %v", err)
	}
	if got := env.ledger.balance(seller); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("seller token balance %s, want 100", got)
	}
	if got := env.ledger.balance(buyer); got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("buyer token balance %s, want 900", got)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != buyer {
		t.Fatalf("asset not delivered to buyer")
	}
}

func TestCancelListing(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	intruder := newTestAddress(0x02)
	env.assets.mint(0, seller)

	if _, err := env.engine.ListItem(seller, 0, big.NewInt(100), NativeCurrency()); err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	if err := env.engine.CancelListing(intruder, 0); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := env.engine.CancelListing(seller, 0); err != nil {
		t.Fatalf("CancelListing: %v", err)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != seller {
		t.Fatalf("asset not returned to seller")
	}
	if _, ok := env.state.ListingGet(0); ok {
		t.Fatalf("listing not destroyed")
	}
	if !env.emitter.seen(EventTypeListingCancelled) {
		t.Fatalf("expected cancellation event")
	}
}

func TestAuctionBidChainAndFinish(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	first := newTestAddress(0x02)
	second := newTestAddress(0x03)
	env.assets.mint(0, seller)
	env.state.setBalance(first, 1_000)
	env.state.setBalance(second, 1_000)

	auction, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), NativeCurrency())
	if err != nil {
		t.Fatalf("ListItemOnAuction: %v", err)
	}
	if auction.StartTime != env.now || auction.EndTime != env.now+testDuration {
		t.Fatalf("unexpected window [%d, %d]", auction.StartTime, auction.EndTime)
	}
	if price, err := env.engine.ItemCurrentAuctionPrice(0); err != nil || price.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("current price %v (%v), want starting price", price, err)
	}

	// First bid competes against the starting price plus step.
	if err := env.engine.MakeBid(first, 0, big.NewInt(105), big.NewInt(105)); !errors.Is(err, ErrInsufficientBid) {
		t.Fatalf("expected ErrInsufficientBid, got %v", err)
	}
	if err := env.engine.MakeBid(first, 0, big.NewInt(110), big.NewInt(110)); err != nil {
		t.Fatalf("MakeBid: %v", err)
	}
	if got := env.state.balance(env.vault); got.Cmp(big.NewInt(110)) != 0 {
		t.Fatalf("vault escrow %s, want 110", got)
	}
	if price, _ := env.engine.ItemCurrentAuctionPrice(0); price.Cmp(big.NewInt(110)) != 0 {
		t.Fatalf("current price %s, want 110", price)
	}

	// Outbid refunds the previous bidder in full.
	if err := env.engine.MakeBid(second, 0, big.NewInt(115), big.NewInt(115)); !errors.Is(err, ErrInsufficientBid) {
		t.Fatalf("expected ErrInsufficientBid below 110+10, got %v", err)
	}
	if err := env.engine.MakeBid(second, 0, big.NewInt(120), big.NewInt(120)); err != nil {
		t.Fatalf("MakeBid: %v", err)
	}
	if got := env.state.balance(first); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("outbid bidder balance %s, want full refund", got)
	}
	if got := env.state.balance(env.vault); got.Cmp(big.NewInt(120)) != 0 {
		t.Fatalf("vault escrow %s, want only the highest bid", got)
	}

	if err := env.engine.FinishAuction(0); !errors.Is(err, ErrAuctionNotOver) {
		t.Fatalf("expected ErrAuctionNotOver, got %v", err)
	}
	env.advance(testDuration)
	if err := env.engine.FinishAuction(0); err != nil {
		t.Fatalf("FinishAuction: %v", err)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != second {
		t.Fatalf("asset not delivered to winner")
	}
	if got := env.state.balance(seller); got.Cmp(big.NewInt(120)) != 0 {
		t.Fatalf("seller payout %s, want 120", got)
	}
	if got := env.state.balance(env.vault); got.Sign() != 0 {
		t.Fatalf("vault retained %s after settlement", got)
	}
	if _, ok := env.state.AuctionGet(0); ok {
		t.Fatalf("auction not destroyed")
	}
	evt := env.emitter.last(EventTypeAuctionFinished)
	if evt == nil {
		t.Fatalf("expected finish event")
	}
	if evt.Attributes["amount"] != "120" {
		t.Fatalf("finish event amount %q, want 120", evt.Attributes["amount"])
	}
}

func TestAuctionSingleBidFails(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	env.assets.mint(0, seller)
	env.state.setBalance(bidder, 1_000)

	if _, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), NativeCurrency()); err != nil {
		t.Fatalf("ListItemOnAuction: %v", err)
	}
	if err := env.engine.MakeBid(bidder, 0, big.NewInt(110), big.NewInt(110)); err != nil {
		t.Fatalf("MakeBid: %v", err)
	}
	env.advance(testDuration)
	if err := env.engine.FinishAuction(0); err != nil {
		t.Fatalf("FinishAuction: %v", err)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != seller {
		t.Fatalf("asset not returned to seller")
	}
	if got := env.state.balance(bidder); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("sole bidder balance %s, want full refund", got)
	}
	if got := env.state.balance(seller); got.Sign() != 0 {
		t.Fatalf("seller gained %s from failed auction", got)
	}
	evt := env.emitter.last(EventTypeAuctionFinished)
	if evt == nil || evt.Attributes["amount"] != "0" {
		t.Fatalf("expected unsold finish event with zero amount, got %+v", evt)
	}
}

func TestAuctionNoBidsFinish(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	env.assets.mint(0, seller)

	if _, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), NativeCurrency()); err != nil {
		t.Fatalf("ListItemOnAuction: %v", err)
	}
	env.advance(testDuration)
	if err := env.engine.FinishAuction(0); err != nil {
		t.Fatalf("FinishAuction: %v", err)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != seller {
		t.Fatalf("asset not returned to seller")
	}
	if err := env.engine.FinishAuction(0); !errors.Is(err, ErrAuctionNotActive) {
		t.Fatalf("expected ErrAuctionNotActive after settlement, got %v", err)
	}
}

func TestAuctionTokenRail(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	first := newTestAddress(0x02)
	second := newTestAddress(0x03)
	env.assets.mint(0, seller)
	env.ledger.setBalance(first, 1_000)
	env.ledger.setBalance(second, 1_000)
	env.ledger.approve(first, 110)
	env.ledger.approve(second, 120)

	if _, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), TokenCurrency(testToken)); err != nil {
		t.Fatalf("ListItemOnAuction: %v", err)
	}
	if err := env.engine.MakeBid(first, 0, big.NewInt(110), nil); err != nil {
		t.Fatalf("MakeBid: %v", err)
	}
	if err := env.engine.MakeBid(second, 0, big.NewInt(120), nil); err != nil {
		t.Fatalf("MakeBid: %v", err)
	}
	if got := env.ledger.balance(first); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("outbid bidder token balance %s, want full refund", got)
	}
	env.advance(testDuration)
	if err := env.engine.FinishAuction(0); err != nil {
		t.Fatalf("FinishAuction: %v", err)
	}
	if got := env.ledger.balance(seller); got.Cmp(big.NewInt(120)) != 0 {
		t.Fatalf("seller token payout %s, want 120", got)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != second {
		t.Fatalf("asset not delivered to winner")
	}
}

func TestMakeBidAfterEnd(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	env.assets.mint(0, seller)
	env.state.setBalance(bidder, 1_000)

	if err := env.engine.MakeBid(bidder, 0, big.NewInt(110), big.NewInt(110)); !errors.Is(err, ErrNotSelling) {
		t.Fatalf("expected ErrNotSelling, got %v", err)
	}
	if _, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), NativeCurrency()); err != nil {
		t.Fatalf("ListItemOnAuction: %v", err)
	}
	if err := env.engine.MakeBid(bidder, 0, big.NewInt(110), big.NewInt(50)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for short value, got %v", err)
	}
	env.advance(testDuration)
	if err := env.engine.MakeBid(bidder, 0, big.NewInt(110), big.NewInt(110)); !errors.Is(err, ErrAuctionOver) {
		t.Fatalf("expected ErrAuctionOver, got %v", err)
	}
}

func TestCancelAuction(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	intruder := newTestAddress(0x03)
	env.assets.mint(0, seller)
	env.state.setBalance(bidder, 1_000)

	// Cancelling a nonexistent auction fails the seller check.
	if err := env.engine.CancelAuction(seller, 0); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), NativeCurrency()); err != nil {
		t.Fatalf("ListItemOnAuction: %v", err)
	}
	if err := env.engine.MakeBid(bidder, 0, big.NewInt(110), big.NewInt(110)); err != nil {
		t.Fatalf("MakeBid: %v", err)
	}
	if err := env.engine.CancelAuction(intruder, 0); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := env.engine.CancelAuction(seller, 0); err != nil {
		t.Fatalf("CancelAuction: %v", err)
	}
	if got := env.state.balance(bidder); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("bidder balance %s, want full refund", got)
	}
	if owner, _ := env.assets.OwnerOf(0); owner != seller {
		t.Fatalf("asset not returned to seller")
	}
	if !env.emitter.seen(EventTypeAuctionCancelled) {
		t.Fatalf("expected cancellation event")
	}
}

func TestCancelAuctionAfterEnd(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	env.assets.mint(0, seller)
	env.state.setBalance(bidder, 1_000)

	if _, err := env.engine.ListItemOnAuction(seller, 0, big.NewInt(100), big.NewInt(10), NativeCurrency()); err != nil {
		t.Fatalf("ListItemOnAuction: %v", err)
	}
	if err := env.engine.MakeBid(bidder, 0, big.NewInt(110), big.NewInt(110)); err != nil {
		t.Fatalf("MakeBid: %v", err)
	}
	env.advance(testDuration)
	if err := env.engine.CancelAuction(seller, 0); !errors.Is(err, ErrAuctionAlreadyFinished) {
		t.Fatalf("expected ErrAuctionAlreadyFinished, got %v", err)
	}
	// The elapsed auction can still be settled.
	if err := env.engine.FinishAuction(0); err != nil {
		t.Fatalf("FinishAuction: %v", err)
	}
}

func TestRelistAfterSettlement(t *testing.T) {
	env := newTestEnv(t)
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	env.assets.mint(0, seller)
	env.state.setBalance(buyer, 1_000)

	if _, err := env.engine.ListItem(seller, 0, big.NewInt(100), NativeCurrency()); err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	if err := env.engine.BuyItem(buyer, 0, big.NewInt(100)); err != nil {
		t.Fatalf("BuyItem: %v", err)
	}
	// The new owner can immediately re-list.
	if _, err := env.engine.ListItemOnAuction(buyer, 0, big.NewInt(200), big.NewInt(20), NativeCurrency()); err != nil {
		t.Fatalf("re-list after purchase: %v", err)
	}
}
