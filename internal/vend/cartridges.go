package vend

import (
	"sync"

	"github.com/dledlow/unitystation/internal/model"
)

// CartridgeIssuer tracks restock cartridges that exist in the world.
// It issues them, resolves serials presented by the gateway, and —
// as the machines' Despawner — removes them once consumed.
type CartridgeIssuer struct {
	mu     sync.Mutex
	issued map[string]*model.RestockCartridge
}

// NewCartridgeIssuer creates an issuer with no outstanding cartridges.
func NewCartridgeIssuer() *CartridgeIssuer {
	return &CartridgeIssuer{issued: make(map[string]*model.RestockCartridge)}
}

// Issue creates a new cartridge and tracks it until despawned.
func (i *CartridgeIssuer) Issue() *model.RestockCartridge {
	c := model.NewRestockCartridge()

	i.mu.Lock()
	i.issued[c.Serial()] = c
	i.mu.Unlock()
	return c
}

// Lookup resolves a serial to an outstanding cartridge, or nil.
func (i *CartridgeIssuer) Lookup(serial string) *model.RestockCartridge {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.issued[serial]
}

// Despawn removes a consumed cartridge from the world. Implements
// vend.Despawner.
func (i *CartridgeIssuer) Despawn(cartridge *model.RestockCartridge) {
	if cartridge == nil {
		return
	}
	i.mu.Lock()
	delete(i.issued, cartridge.Serial())
	i.mu.Unlock()
}

// Outstanding returns the number of cartridges still in the world.
func (i *CartridgeIssuer) Outstanding() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.issued)
}
