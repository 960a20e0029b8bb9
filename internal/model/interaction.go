package model

import (
	"sync"

	"github.com/google/uuid"
)

// InteractionPayload is whatever an actor presents to a machine during
// an interaction — a held item, a tool, or nothing at all. The vending
// core only inspects its capabilities, never mutates it.
type InteractionPayload any

// RestockCapable is the capability a payload must expose for the
// machine to treat the interaction as a restock action.
type RestockCapable interface {
	RestockCartridge() *RestockCartridge
}

// RestockCartridge is a single-use capability object authorizing a
// restock interaction. The machine consumes it at most once; actual
// removal from the world is the issuer's job after the machine signals
// approval.
type RestockCartridge struct {
	serial string

	mu    sync.Mutex
	spent bool
}

// NewRestockCartridge issues a cartridge with a fresh serial.
func NewRestockCartridge() *RestockCartridge {
	return &RestockCartridge{serial: uuid.NewString()}
}

// Serial returns the cartridge's unique serial number.
func (c *RestockCartridge) Serial() string { return c.serial }

// RestockCartridge makes the cartridge itself a valid restock payload.
func (c *RestockCartridge) RestockCartridge() *RestockCartridge { return c }

// Consume marks the cartridge spent. Returns false if it was already
// spent, so a cartridge presented twice only ever authorizes one
// restock.
func (c *RestockCartridge) Consume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.spent {
		return false
	}
	c.spent = true
	return true
}

// Spent reports whether the cartridge has been consumed.
func (c *RestockCartridge) Spent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spent
}
