package token

import (
	"errors"
	"fmt"
	"math/big"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

// RoleTokenAdmin gates supply changes on the ledger. The role set is seeded
// from process-wide configuration at startup.
const RoleTokenAdmin = "ROLE_TOKEN_ADMIN"

var (
	errNilState              = errors.New("token engine: state not configured")
	ErrAdminRequired         = errors.New("token: caller lacks the token admin role")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

type ledgerState interface {
	TokenBalance(token, holder [20]byte) (*big.Int, error)
	TokenSetBalance(token, holder [20]byte, amount *big.Int) error
	TokenAllowance(token, owner, spender [20]byte) (*big.Int, error)
	TokenSetAllowance(token, owner, spender [20]byte, amount *big.Int) error
	HasRole(role string, addr []byte) bool
}

// Engine is a multi-token fungible ledger keyed by token address. It backs
// the token payment rail of the marketplace: buyers approve the market
// custodian, which then pulls the owed amount via TransferFrom.
type Engine struct {
	state   ledgerState
	emitter events.Emitter
}

// NewEngine constructs a ledger engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state ledgerState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(ledgerEvent{evt: evt})
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Mint credits newly issued units to the recipient. The caller must hold the
// token admin role.
func (e *Engine) Mint(caller, token, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.state.HasRole(RoleTokenAdmin, caller[:]) {
		return ErrAdminRequired
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: mint amount must be positive")
	}
	balance, err := e.state.TokenBalance(token, to)
	if err != nil {
		return err
	}
	if err := e.state.TokenSetBalance(token, to, new(big.Int).Add(cloneBigInt(balance), amt)); err != nil {
		return err
	}
	e.emit(NewMintEvent(token, to, amt))
	return nil
}

// BalanceOf returns the holder's balance for the given token.
func (e *Engine) BalanceOf(token, holder [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	balance, err := e.state.TokenBalance(token, holder)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(balance), nil
}

// Approve grants the spender the right to pull up to amount from the owner.
func (e *Engine) Approve(token, owner, spender [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: approval amount must be non-negative")
	}
	if err := e.state.TokenSetAllowance(token, owner, spender, amt); err != nil {
		return err
	}
	e.emit(NewApprovalEvent(token, owner, spender, amt))
	return nil
}

// Allowance returns the amount the spender may still pull from the owner.
func (e *Engine) Allowance(token, owner, spender [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	allowance, err := e.state.TokenAllowance(token, owner, spender)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(allowance), nil
}

// Transfer moves units between holders without touching allowances.
func (e *Engine) Transfer(token, from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.move(token, from, to, cloneBigInt(amount))
}

// TransferFrom moves units from the owner to the recipient on behalf of the
// spender, consuming the owner's allowance.
func (e *Engine) TransferFrom(token, spender, owner, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: transfer amount must be positive")
	}
	allowance, err := e.state.TokenAllowance(token, owner, spender)
	if err != nil {
		return err
	}
	allowed := cloneBigInt(allowance)
	if allowed.Cmp(amt) < 0 {
		return ErrInsufficientAllowance
	}
	if err := e.move(token, owner, to, amt); err != nil {
		return err
	}
	return e.state.TokenSetAllowance(token, owner, spender, new(big.Int).Sub(allowed, amt))
}

func (e *Engine) move(token, from, to [20]byte, amt *big.Int) error {
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: transfer amount must be positive")
	}
	if from == to {
		return nil
	}
	fromBalance, err := e.state.TokenBalance(token, from)
	if err != nil {
		return err
	}
	balance := cloneBigInt(fromBalance)
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := e.state.TokenBalance(token, to)
	if err != nil {
		return err
	}
	if err := e.state.TokenSetBalance(token, from, new(big.Int).Sub(balance, amt)); err != nil {
		return err
	}
	if err := e.state.TokenSetBalance(token, to, new(big.Int).Add(cloneBigInt(toBalance), amt)); err != nil {
		return err
	}
	e.emit(NewTransferEvent(token, from, to, amt))
	return nil
}

// CustodianLedger is a view of the ledger bound to a custodian address. Pulls
// consume the allowance granted to the custodian; pushes move funds the
// custodian already holds.
type CustodianLedger struct {
	engine    *Engine
	custodian [20]byte
}

// Custodian returns a ledger view acting on behalf of the supplied address.
func (e *Engine) Custodian(addr [20]byte) *CustodianLedger {
	return &CustodianLedger{engine: e, custodian: addr}
}

// TransferFrom pulls tokens from the owner using the custodian's allowance.
func (c *CustodianLedger) TransferFrom(token, owner, to [20]byte, amount *big.Int) error {
	if c == nil || c.engine == nil {
		return errNilState
	}
	return c.engine.TransferFrom(token, c.custodian, owner, to, amount)
}

// Transfer moves tokens between holders; the market uses it to settle and
// refund escrowed funds out of custody.
func (c *CustodianLedger) Transfer(token, from, to [20]byte, amount *big.Int) error {
	if c == nil || c.engine == nil {
		return errNilState
	}
	return c.engine.Transfer(token, from, to, amount)
}
