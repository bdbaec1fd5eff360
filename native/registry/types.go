package registry

import "fmt"

// Asset is a unique item tracked by the registry. Ownership is exclusive: an
// asset is either freely held by its owner or parked with a custodian while a
// sale is in flight.
type Asset struct {
	ID        uint64   `json:"id"`
	Owner     [20]byte `json:"owner"`
	URI       string   `json:"uri"`
	MetaHash  [32]byte `json:"metaHash"`
	CreatedAt int64    `json:"createdAt"`
}

// Clone returns a copy of the asset so callers can safely mutate the result.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// SanitizeAsset validates the supplied asset definition and returns a cloned
// instance. The function does not mutate the original value.
func SanitizeAsset(a *Asset) (*Asset, error) {
	if a == nil {
		return nil, fmt.Errorf("registry: nil asset")
	}
	if a.Owner == ([20]byte{}) {
		return nil, fmt.Errorf("registry: asset owner required")
	}
	return a.Clone(), nil
}
