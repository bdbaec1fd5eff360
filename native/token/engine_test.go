package token

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"nftmarket/core/events"
)

type balanceKey struct {
	token  [20]byte
	holder [20]byte
}

type allowanceKey struct {
	token   [20]byte
	owner   [20]byte
	spender [20]byte
}

type mockState struct {
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
	roles      map[string]map[[20]byte]bool
}

func newMockState() *mockState {
	return &mockState{
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		roles:      make(map[string]map[[20]byte]bool),
	}
}

func (m *mockState) TokenBalance(token, holder [20]byte) (*big.Int, error) {
	balance, ok := m.balances[balanceKey{token, holder}]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (m *mockState) TokenSetBalance(token, holder [20]byte, amount *big.Int) error {
	m.balances[balanceKey{token, holder}] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) TokenAllowance(token, owner, spender [20]byte) (*big.Int, error) {
	allowance, ok := m.allowances[allowanceKey{token, owner, spender}]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(allowance), nil
}

func (m *mockState) TokenSetAllowance(token, owner, spender [20]byte, amount *big.Int) error {
	m.allowances[allowanceKey{token, owner, spender}] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) HasRole(role string, addr []byte) bool {
	var key [20]byte
	copy(key[:], addr)
	return m.roles[role][key]
}

func (m *mockState) grant(role string, addr [20]byte) {
	if m.roles[role] == nil {
		m.roles[role] = make(map[[20]byte]bool)
	}
	m.roles[role][addr] = true
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var testToken = newTestAddress(0x70)

func newTestEngine() (*Engine, *mockState, *capturingEmitter) {
	state := newMockState()
	emitter := &capturingEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	return engine, state, emitter
}

func mustBalance(t *testing.T, engine *Engine, holder [20]byte) *big.Int {
	t.Helper()
	balance, err := engine.BalanceOf(testToken, holder)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	return balance
}

func TestMintRequiresAdmin(t *testing.T) {
	engine, state, emitter := newTestEngine()
	admin := newTestAddress(0x01)
	holder := newTestAddress(0x02)

	if err := engine.Mint(admin, testToken, holder, big.NewInt(100)); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	state.grant(RoleTokenAdmin, admin)
	if err := engine.Mint(admin, testToken, holder, big.NewInt(0)); err == nil {
		t.Fatalf("expected zero amount rejection")
	}
	if err := engine.Mint(admin, testToken, holder, big.NewInt(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if got := mustBalance(t, engine, holder); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance %s, want 100", got)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType() != EventTypeTokenMinted {
		t.Fatalf("unexpected events %+v", emitter.events)
	}
}

func TestTransfer(t *testing.T) {
	engine, state, _ := newTestEngine()
	admin := newTestAddress(0x01)
	from := newTestAddress(0x02)
	to := newTestAddress(0x03)
	state.grant(RoleTokenAdmin, admin)
	if err := engine.Mint(admin, testToken, from, big.NewInt(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if err := engine.Transfer(testToken, from, to, big.NewInt(150)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := engine.Transfer(testToken, from, to, big.NewInt(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := mustBalance(t, engine, from); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("sender balance %s, want 60", got)
	}
	if got := mustBalance(t, engine, to); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("recipient balance %s, want 40", got)
	}
	// Self transfer is a no-op, not inflation.
	if err := engine.Transfer(testToken, from, from, big.NewInt(10)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := mustBalance(t, engine, from); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("self transfer changed balance to %s", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	engine, state, _ := newTestEngine()
	admin := newTestAddress(0x01)
	owner := newTestAddress(0x02)
	spender := newTestAddress(0x03)
	payee := newTestAddress(0x04)
	state.grant(RoleTokenAdmin, admin)
	if err := engine.Mint(admin, testToken, owner, big.NewInt(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if err := engine.TransferFrom(testToken, spender, owner, payee, big.NewInt(40)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := engine.Approve(testToken, owner, spender, big.NewInt(50)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := engine.TransferFrom(testToken, spender, owner, payee, big.NewInt(40)); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	remaining, err := engine.Allowance(testToken, owner, spender)
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("remaining allowance %s, want 10", remaining)
	}
	if got := mustBalance(t, engine, payee); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("payee balance %s, want 40", got)
	}
	if err := engine.TransferFrom(testToken, spender, owner, payee, big.NewInt(20)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected allowance exhaustion, got %v", err)
	}
}

func TestApproveRejectsNegative(t *testing.T) {
	engine, _, _ := newTestEngine()
	owner := newTestAddress(0x01)
	spender := newTestAddress(0x02)
	if err := engine.Approve(testToken, owner, spender, big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative approval rejection")
	}
	// Zero approval clears the allowance.
	if err := engine.Approve(testToken, owner, spender, big.NewInt(0)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
}

func TestCustodianLedger(t *testing.T) {
	engine, state, _ := newTestEngine()
	admin := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	seller := newTestAddress(0x03)
	vault := newTestAddress(0xEE)
	state.grant(RoleTokenAdmin, admin)
	if err := engine.Mint(admin, testToken, buyer, big.NewInt(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := engine.Approve(testToken, buyer, vault, big.NewInt(100)); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	custodian := engine.Custodian(vault)
	if err := custodian.TransferFrom(testToken, buyer, vault, big.NewInt(60)); err != nil {
		t.Fatalf("custodian pull: %v", err)
	}
	if got := mustBalance(t, engine, vault); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("vault balance %s, want 60", got)
	}
	if err := custodian.Transfer(testToken, vault, seller, big.NewInt(60)); err != nil {
		t.Fatalf("custodian push: %v", err)
	}
	if got := mustBalance(t, engine, seller); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("seller balance %s, want 60", got)
	}
	if got := mustBalance(t, engine, vault); got.Sign() != 0 {
		t.Fatalf("vault retained %s", got)
	}
}
