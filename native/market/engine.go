package market

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

// DefaultAuctionDuration is the fixed auction window applied when the engine
// is not configured otherwise.
const DefaultAuctionDuration int64 = 3 * 24 * 60 * 60

var (
	errNilState  = errors.New("market engine: state not configured")
	errNilAssets = errors.New("market engine: ownership provider not configured")
	errNilTokens = errors.New("market engine: token ledger not configured")
	errNilVault  = errors.New("market engine: custody vault not configured")

	// ErrNotOwner is returned when the caller is not the owner of the asset,
	// listing or auction the operation targets.
	ErrNotOwner = errors.New("market: caller is not the owner")
	// ErrAlreadyListed is returned when the asset already has an active
	// listing or auction.
	ErrAlreadyListed = errors.New("market: item is already on sale")
	// ErrNotSelling is returned when no active listing or auction exists for
	// the asset.
	ErrNotSelling = errors.New("market: item is not selling")
	// ErrAuctionNotActive is returned by FinishAuction when no auction exists.
	ErrAuctionNotActive = errors.New("market: auction is not active")
	// ErrInsufficientFunds is returned when the supplied value or allowance
	// does not cover the owed amount.
	ErrInsufficientFunds = errors.New("market: not enough funds supplied")
	// ErrInsufficientBid is returned when a bid is below the accept threshold.
	ErrInsufficientBid = errors.New("market: bid below required threshold")
	// ErrAuctionOver is returned for bids submitted after the auction window.
	ErrAuctionOver = errors.New("market: auction is over")
	// ErrAuctionNotOver is returned when finishing before the window elapses.
	ErrAuctionNotOver = errors.New("market: auction is not over")
	// ErrAuctionAlreadyFinished is returned when cancelling past the window.
	ErrAuctionAlreadyFinished = errors.New("market: auction is already finished")
)

type marketState interface {
	ListingPut(*Listing) error
	ListingGet(assetID uint64) (*Listing, bool)
	ListingDelete(assetID uint64) error
	AuctionPut(*Auction) error
	AuctionGet(assetID uint64) (*Auction, bool)
	AuctionDelete(assetID uint64) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// OwnershipProvider is the asset custody collaborator. Transfer moves the
// asset between a holder and the market vault; the provider rejects transfers
// whose source is not the current holder.
type OwnershipProvider interface {
	OwnerOf(assetID uint64) ([20]byte, error)
	Transfer(assetID uint64, from, to [20]byte) error
}

// TokenLedger is the fungible payment collaborator bound to the market
// custodian. TransferFrom pulls pre-approved funds from a payer into custody;
// Transfer pays custody funds out.
type TokenLedger interface {
	TransferFrom(token, owner, to [20]byte, amount *big.Int) error
	Transfer(token, from, to [20]byte, amount *big.Int) error
}

// Engine implements the fixed-price listing registry and the auction state
// machine, including the escrow accounting for both payment rails. Every
// exported operation runs under the engine mutex and is all-or-nothing:
// validation and fund collection happen before any record mutation.
type Engine struct {
	mu              sync.Mutex
	state           marketState
	assets          OwnershipProvider
	tokens          TokenLedger
	emitter         events.Emitter
	vault           [20]byte
	auctionDuration int64
	nowFn           func() int64
}

// NewEngine constructs a market engine with the default auction window and a
// no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter:         events.NoopEmitter{},
		auctionDuration: DefaultAuctionDuration,
		nowFn:           func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state marketState) { e.state = state }

// SetOwnership configures the asset custody collaborator.
func (e *Engine) SetOwnership(assets OwnershipProvider) { e.assets = assets }

// SetTokenLedger configures the fungible payment collaborator.
func (e *Engine) SetTokenLedger(tokens TokenLedger) { e.tokens = tokens }

// SetVault configures the address holding escrowed funds and assets while a
// sale is in flight.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetAuctionDuration overrides the fixed auction window, in seconds.
func (e *Engine) SetAuctionDuration(seconds int64) {
	if seconds <= 0 {
		e.auctionDuration = DefaultAuctionDuration
		return
	}
	e.auctionDuration = seconds
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) checkWired() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.assets == nil:
		return errNilAssets
	case e.tokens == nil:
		return errNilTokens
	case e.vault == ([20]byte{}):
		return errNilVault
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// ListItem puts a free asset up for sale at a fixed price. The caller must be
// the asset's current owner; custody moves to the market vault until the
// listing is bought or cancelled.
func (e *Engine) ListItem(caller [20]byte, assetID uint64, price *big.Int, currency Currency) (*Listing, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !currency.Valid() {
		return nil, fmt.Errorf("market: invalid currency")
	}
	amount := cloneBigInt(price)
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("market: listing price must be positive")
	}
	if e.onSale(assetID) {
		return nil, ErrAlreadyListed
	}
	owner, err := e.assets.OwnerOf(assetID)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, ErrNotOwner
	}
	if err := e.assets.Transfer(assetID, caller, e.vault); err != nil {
		return nil, err
	}
	listing := &Listing{
		AssetID:   assetID,
		Seller:    caller,
		Currency:  currency,
		Price:     amount,
		CreatedAt: e.now(),
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(NewItemListedEvent(listing))
	return listing.Clone(), nil
}

// BuyItem purchases a listed asset. On the native rail the attached value
// must cover the price; only the price itself is taken, so any excess stays
// with the buyer. On the token rail the price is pulled from the buyer's
// allowance. The asset and payment change hands atomically.
func (e *Engine) BuyItem(caller [20]byte, assetID uint64, value *big.Int) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, ok := e.state.ListingGet(assetID)
	if !ok {
		return ErrNotSelling
	}
	if err := e.pull(listing.Currency, caller, listing.Price, value); err != nil {
		return err
	}
	if err := e.push(listing.Currency, listing.Seller, listing.Price); err != nil {
		return err
	}
	if err := e.assets.Transfer(assetID, e.vault, caller); err != nil {
		return err
	}
	if err := e.state.ListingDelete(assetID); err != nil {
		return err
	}
	e.emit(NewItemSoldEvent(listing, caller))
	return nil
}

// CancelListing takes a listed asset off sale and returns it to the seller.
// Only the seller may cancel; no payment moves.
func (e *Engine) CancelListing(caller [20]byte, assetID uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, ok := e.state.ListingGet(assetID)
	if !ok {
		return ErrNotSelling
	}
	if listing.Seller != caller {
		return ErrNotOwner
	}
	if err := e.assets.Transfer(assetID, e.vault, listing.Seller); err != nil {
		return err
	}
	if err := e.state.ListingDelete(assetID); err != nil {
		return err
	}
	e.emit(NewListingCancelledEvent(listing))
	return nil
}

// ListItemOnAuction opens a timed auction for a free asset. The caller must
// be the current owner; custody moves to the market vault until the auction
// finishes or is cancelled. The window is fixed at the configured duration.
func (e *Engine) ListItemOnAuction(caller [20]byte, assetID uint64, startPrice, minStep *big.Int, currency Currency) (*Auction, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !currency.Valid() {
		return nil, fmt.Errorf("market: invalid currency")
	}
	price := cloneBigInt(startPrice)
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("market: auction price must be positive")
	}
	step := cloneBigInt(minStep)
	if step.Sign() <= 0 {
		return nil, fmt.Errorf("market: auction step must be positive")
	}
	if e.onSale(assetID) {
		return nil, ErrAlreadyListed
	}
	owner, err := e.assets.OwnerOf(assetID)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, ErrNotOwner
	}
	if err := e.assets.Transfer(assetID, caller, e.vault); err != nil {
		return nil, err
	}
	now := e.now()
	auction := &Auction{
		AssetID:    assetID,
		Seller:     caller,
		Currency:   currency,
		CurrentBid: price,
		MinStep:    step,
		StartTime:  now,
		EndTime:    now + e.auctionDuration,
	}
	if err := e.state.AuctionPut(auction); err != nil {
		return nil, err
	}
	e.emit(NewAuctionListedEvent(auction))
	return auction.Clone(), nil
}

// MakeBid escrows a new highest bid. The accept threshold is always the
// stored bid plus the minimum step, whether or not any bid has been placed:
// CurrentBid initialises to the starting price, so the first bid competes
// against it with the same rule as every later bid. The previous highest
// bidder is refunded in full within the same operation, so at no point are
// two bidders escrowed at once.
func (e *Engine) MakeBid(caller [20]byte, assetID uint64, amount, value *big.Int) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.state.AuctionGet(assetID)
	if !ok {
		return ErrNotSelling
	}
	if e.now() >= auction.EndTime {
		return ErrAuctionOver
	}
	bid := cloneBigInt(amount)
	threshold := new(big.Int).Add(auction.CurrentBid, auction.MinStep)
	if bid.Cmp(threshold) < 0 {
		return ErrInsufficientBid
	}
	if err := e.pull(auction.Currency, caller, bid, value); err != nil {
		return err
	}
	if auction.BidCount > 0 {
		if err := e.push(auction.Currency, auction.HighestBidder, auction.CurrentBid); err != nil {
			return err
		}
	}
	auction.CurrentBid = bid
	auction.HighestBidder = caller
	auction.BidCount++
	if err := e.state.AuctionPut(auction); err != nil {
		return err
	}
	e.emit(NewBidEvent(auction, caller))
	return nil
}

// FinishAuction settles an auction whose window has elapsed. With two or more
// bids the escrowed highest bid pays the seller and the asset goes to the
// highest bidder. With fewer than two bids the sale fails: the sole bid (if
// any) is refunded in full and the asset returns to the seller.
func (e *Engine) FinishAuction(assetID uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.state.AuctionGet(assetID)
	if !ok {
		return ErrAuctionNotActive
	}
	now := e.now()
	if now < auction.EndTime {
		return ErrAuctionNotOver
	}
	winner := auction.Seller
	settled := big.NewInt(0)
	if auction.BidCount >= 2 {
		if err := e.push(auction.Currency, auction.Seller, auction.CurrentBid); err != nil {
			return err
		}
		if err := e.assets.Transfer(assetID, e.vault, auction.HighestBidder); err != nil {
			return err
		}
		winner = auction.HighestBidder
		settled = cloneBigInt(auction.CurrentBid)
	} else {
		if auction.BidCount == 1 {
			if err := e.push(auction.Currency, auction.HighestBidder, auction.CurrentBid); err != nil {
				return err
			}
		}
		if err := e.assets.Transfer(assetID, e.vault, auction.Seller); err != nil {
			return err
		}
	}
	if err := e.state.AuctionDelete(assetID); err != nil {
		return err
	}
	e.emit(NewAuctionFinishedEvent(auction, winner, settled, now))
	return nil
}

// CancelAuction aborts an auction before its window elapses. Only the seller
// may cancel; the current highest bidder (if any) is refunded in full and the
// asset returns to the seller. Once the window has elapsed only FinishAuction
// may settle the auction.
func (e *Engine) CancelAuction(caller [20]byte, assetID uint64) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.state.AuctionGet(assetID)
	if !ok {
		return ErrNotOwner
	}
	if auction.Seller != caller {
		return ErrNotOwner
	}
	now := e.now()
	if now >= auction.EndTime {
		return ErrAuctionAlreadyFinished
	}
	if auction.BidCount > 0 {
		if err := e.push(auction.Currency, auction.HighestBidder, auction.CurrentBid); err != nil {
			return err
		}
	}
	if err := e.assets.Transfer(assetID, e.vault, auction.Seller); err != nil {
		return err
	}
	if err := e.state.AuctionDelete(assetID); err != nil {
		return err
	}
	e.emit(NewAuctionCancelledEvent(auction, now))
	return nil
}

// ItemCurrentAuctionPrice returns the current bid of a live auction: the
// starting price until the first bid, else the highest accepted bid.
func (e *Engine) ItemCurrentAuctionPrice(assetID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.state.AuctionGet(assetID)
	if !ok {
		return nil, ErrAuctionNotActive
	}
	return cloneBigInt(auction.CurrentBid), nil
}

// Listing returns the active listing for an asset, if any.
func (e *Engine) Listing(assetID uint64) (*Listing, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, ok := e.state.ListingGet(assetID)
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

// Auction returns the active auction for an asset, if any.
func (e *Engine) Auction(assetID uint64) (*Auction, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	auction, ok := e.state.AuctionGet(assetID)
	if !ok {
		return nil, false
	}
	return auction.Clone(), true
}

func (e *Engine) onSale(assetID uint64) bool {
	if _, ok := e.state.ListingGet(assetID); ok {
		return true
	}
	if _, ok := e.state.AuctionGet(assetID); ok {
		return true
	}
	return false
}

// pull collects amount from the payer into market custody. Native rail: the
// attached value must cover the amount and only the amount is debited, which
// leaves any overpayment with the payer. Token rail: the amount is pulled
// from the payer's pre-approved allowance.
func (e *Engine) pull(currency Currency, payer [20]byte, amount, value *big.Int) error {
	switch currency.Kind {
	case CurrencyNative:
		if value == nil || value.Cmp(amount) < 0 {
			return ErrInsufficientFunds
		}
		return e.transferNative(payer, e.vault, amount)
	case CurrencyToken:
		if err := e.tokens.TransferFrom(currency.Token, payer, e.vault, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		return nil
	default:
		return fmt.Errorf("market: invalid currency")
	}
}

// push pays amount out of market custody to the payee.
func (e *Engine) push(currency Currency, payee [20]byte, amount *big.Int) error {
	switch currency.Kind {
	case CurrencyNative:
		return e.transferNative(e.vault, payee, amount)
	case CurrencyToken:
		return e.tokens.Transfer(currency.Token, e.vault, payee, amount)
	default:
		return fmt.Errorf("market: invalid currency")
	}
}

func (e *Engine) transferNative(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("market: negative transfer amount")
	}
	if amt.Sign() == 0 || from == to {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.BalanceNative.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.BalanceNative = new(big.Int).Sub(fromAcc.BalanceNative, amt)
	toAcc.BalanceNative = new(big.Int).Add(toAcc.BalanceNative, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{BalanceNative: big.NewInt(0)}
	}
	if acc.BalanceNative == nil {
		acc.BalanceNative = big.NewInt(0)
	}
	return acc
}
