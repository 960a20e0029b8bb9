package vend

import "github.com/dledlow/unitystation/internal/model"

// IsEligibleRestock reports whether the presented payload may be
// treated as a restock action: it must be non-nil and expose a
// non-nil restock cartridge. Pure predicate — no side effects, the
// cartridge is not consumed here.
func IsEligibleRestock(payload model.InteractionPayload) bool {
	if payload == nil {
		return false
	}
	capable, ok := payload.(model.RestockCapable)
	if !ok {
		return false
	}
	return capable.RestockCartridge() != nil
}
