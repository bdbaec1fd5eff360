package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

// RoleMinter gates asset creation. The role set is seeded from process-wide
// configuration at startup.
const RoleMinter = "ROLE_MINTER"

var (
	errNilState       = errors.New("registry engine: state not configured")
	ErrAssetNotFound  = errors.New("registry: asset not found")
	ErrMinterRequired = errors.New("registry: caller lacks the minter role")
	ErrWrongOwner     = errors.New("registry: transfer source is not the current holder")
)

type engineState interface {
	AssetPut(*Asset) error
	AssetGet(id uint64) (*Asset, bool)
	AssetNextID() (uint64, error)
	HasRole(role string, addr []byte) bool
}

// Engine implements the ownership side of the marketplace: capability-gated
// minting plus holder-to-holder transfer used for custody handoff.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a registry engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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
	e.emitter.Emit(registryEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Mint creates a new asset owned by the supplied address. The caller must
// hold the minter role; asset identifiers are assigned sequentially.
func (e *Engine) Mint(caller, owner [20]byte, uri string) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !e.state.HasRole(RoleMinter, caller[:]) {
		return nil, ErrMinterRequired
	}
	if owner == ([20]byte{}) {
		return nil, fmt.Errorf("registry: mint owner required")
	}
	id, err := e.state.AssetNextID()
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(uri)
	asset := &Asset{
		ID:        id,
		Owner:     owner,
		URI:       trimmed,
		MetaHash:  [32]byte(ethcrypto.Keccak256Hash([]byte(trimmed))),
		CreatedAt: e.now(),
	}
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(NewMintedEvent(asset))
	return asset.Clone(), nil
}

// OwnerOf returns the current holder of the asset.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	asset, err := e.loadAsset(id)
	if err != nil {
		return [20]byte{}, err
	}
	return asset.Owner, nil
}

// Asset returns the stored asset record.
func (e *Engine) Asset(id uint64) (*Asset, error) {
	return e.loadAsset(id)
}

// Transfer moves the asset from its current holder to the recipient. The
// supplied source must match the current holder, which is how the market
// engine proves custody before releasing an asset.
func (e *Engine) Transfer(id uint64, from, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	asset, err := e.loadAsset(id)
	if err != nil {
		return err
	}
	if asset.Owner != from {
		return ErrWrongOwner
	}
	if to == ([20]byte{}) {
		return fmt.Errorf("registry: transfer recipient required")
	}
	asset.Owner = to
	if err := e.state.AssetPut(asset); err != nil {
		return err
	}
	e.emit(NewTransferredEvent(asset, from))
	return nil
}

func (e *Engine) loadAsset(id uint64) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	asset, ok := e.state.AssetGet(id)
	if !ok {
		return nil, ErrAssetNotFound
	}
	return asset.Clone(), nil
}
