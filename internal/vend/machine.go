package vend

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dledlow/unitystation/internal/model"
)

// Despawner removes a consumed cartridge from the world. The machine
// only signals; it never destroys the object itself.
type Despawner interface {
	Despawn(cartridge *model.RestockCartridge)
}

// Machine is one server-side vending machine: a live catalog, a
// per-actor cooldown gate and the transaction logic tying them
// together. It is the only writer of its catalog's stock counters.
//
// Locking: mu serializes every mutating transaction (vend, reset) on
// this machine. The catalog and gate carry their own locks so that
// read paths (availability, CanSell) never contend with each other,
// but the stock-check / cooldown-admit / decrement triplet of TryVend
// must run under mu as one critical section — that is what keeps the
// machine from overselling and from burning an actor's cooldown on an
// empty slot.
type Machine struct {
	id       string
	kind     string
	eject    string
	template *model.CatalogTemplate

	mu      sync.Mutex
	catalog *model.Catalog
	gate    *model.CooldownGate

	sinkMu    sync.RWMutex
	sinks     []Sink
	despawner Despawner
}

// NewMachine creates a machine of the given kind. The catalog starts
// empty; nothing can be vended until Initialize runs on the spawn
// event.
func NewMachine(id, kind, eject string, template *model.CatalogTemplate, cooldown time.Duration) *Machine {
	return &Machine{
		id:       id,
		kind:     kind,
		eject:    eject,
		template: template,
		catalog:  model.NewCatalog(),
		gate:     model.NewCooldownGate(cooldown),
	}
}

// ID returns the machine's world object ID.
func (m *Machine) ID() string { return m.id }

// Kind returns the machine definition type ("snack", "medical", ...).
func (m *Machine) Kind() string { return m.kind }

// AddSink registers a notification sink.
func (m *Machine) AddSink(s Sink) {
	m.sinkMu.Lock()
	m.sinks = append(m.sinks, s)
	m.sinkMu.Unlock()
}

// SetDespawner wires the collaborator that destroys consumed
// cartridges.
func (m *Machine) SetDespawner(d Despawner) {
	m.sinkMu.Lock()
	m.despawner = d
	m.sinkMu.Unlock()
}

// Initialize rebuilds the catalog from the machine's template. Called
// on the spawn event and on every scheduled restock; this is the only
// path that raises stock counters. Safe to call repeatedly — the
// result depends only on the template.
func (m *Machine) Initialize() {
	m.mu.Lock()
	m.catalog.Reset(m.template)
	m.mu.Unlock()

	slog.Debug("machine catalog reset", "machine", m.id, "slots", m.catalog.Len())
}

// Availability returns an ordered snapshot of the machine's slots for
// presentation.
func (m *Machine) Availability() []model.StockRow {
	return m.catalog.Snapshot()
}

// CanSell reports whether a vend of slot index by actor would succeed
// right now: the slot exists, has stock, and the actor is off
// cooldown. Read-only — it never records a cooldown timestamp, so UI
// polling cannot burn an actor's window.
func (m *Machine) CanSell(index int, actor model.ActorID, now time.Time) bool {
	remaining, ok := m.catalog.Remaining(index)
	if !ok || remaining <= 0 {
		return false
	}
	return m.gate.WouldAdmit(actor, now)
}

// TryVend attempts to dispense slot index to actor at now.
//
// The checks run in a fixed order inside one critical section:
//
//  1. slot exists and has stock, otherwise Rejected — the cooldown
//     gate is not consulted, so an empty slot never records a
//     timestamp;
//  2. cooldown admission, otherwise CooldownActive — admission and
//     timestamp write are one atomic step inside the gate;
//  3. decrement by exactly one.
//
// Once the decrement commits it is never rolled back: a sink that
// fails to present the item downstream does not undo the sale.
// Notifications fire after the lock is released, exactly once per
// success and never on failure.
func (m *Machine) TryVend(index int, actor model.ActorID, now time.Time) VendResult {
	m.mu.Lock()

	remaining, ok := m.catalog.Remaining(index)
	if !ok || remaining <= 0 {
		m.mu.Unlock()
		return VendResult{Code: ResultRejected}
	}

	if !m.gate.TryAdmit(actor, now) {
		m.mu.Unlock()
		return VendResult{Code: ResultCooldownActive}
	}

	item, err := m.catalog.Decrement(index)
	m.mu.Unlock()
	if err != nil {
		// Unreachable while mu serializes all writers; kept as a
		// guard so a future locking mistake rejects instead of
		// dispensing.
		slog.Error("decrement failed after stock check", "machine", m.id, "slot", index, "error", err)
		return VendResult{Code: ResultRejected}
	}

	ev := VendEvent{
		Machine: m.id,
		Item:    item,
		Actor:   actor,
		Eject:   EjectRequest{Machine: m.id, Direction: m.eject},
	}
	for _, s := range m.snapshotSinks() {
		s.OnItemVended(ev)
	}

	slog.Info("item vended", "machine", m.id, "slot", index, "item", item, "actor", actor)
	return VendResult{Code: ResultSuccess, Item: item}
}

// RestockConsume handles a restock interaction. If the payload lacks
// the restock capability, or its cartridge was already spent, nothing
// happens and false is returned. Otherwise the cartridge is consumed,
// the restock notification fires exactly once, the despawner is told
// to destroy the cartridge, and true is returned.
//
// Consuming a cartridge does not itself touch the catalog; stock
// replenishment runs through the scheduled Initialize path.
func (m *Machine) RestockConsume(payload model.InteractionPayload) bool {
	if !IsEligibleRestock(payload) {
		return false
	}
	cartridge := payload.(model.RestockCapable).RestockCartridge()
	if !cartridge.Consume() {
		slog.Warn("spent cartridge presented", "machine", m.id, "serial", cartridge.Serial())
		return false
	}

	ev := RestockEvent{Machine: m.id, Serial: cartridge.Serial()}
	for _, s := range m.snapshotSinks() {
		s.OnRestockUsed(ev)
	}

	m.sinkMu.RLock()
	despawner := m.despawner
	m.sinkMu.RUnlock()
	if despawner != nil {
		despawner.Despawn(cartridge)
	}

	slog.Info("restock cartridge used", "machine", m.id, "serial", cartridge.Serial())
	return true
}

func (m *Machine) snapshotSinks() []Sink {
	m.sinkMu.RLock()
	defer m.sinkMu.RUnlock()

	sinks := make([]Sink, len(m.sinks))
	copy(sinks, m.sinks)
	return sinks
}
