package vend

import "github.com/dledlow/unitystation/internal/model"

// EjectRequest asks the spawning collaborator to materialize a
// dispensed item near the machine. Direction is an opaque policy tag
// from the machine definition ("none", "up", "down", "random"); the
// engine passes it through without interpreting it — trajectory and
// scatter are physics concerns.
type EjectRequest struct {
	Machine   string
	Direction string
}

// VendEvent is emitted exactly once per successful vend.
type VendEvent struct {
	Machine string
	Item    model.ItemRef
	Actor   model.ActorID
	Eject   EjectRequest
}

// RestockEvent is emitted exactly once per accepted restock cartridge.
type RestockEvent struct {
	Machine string
	Serial  string
}

// Sink receives machine notifications for downstream presentation:
// sounds, chat lines, journal rows. Sinks must not block — the engine
// calls them synchronously after releasing its lock. Ordering between
// multiple sinks is not guaranteed.
type Sink interface {
	OnItemVended(ev VendEvent)
	OnRestockUsed(ev RestockEvent)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Vended    func(ev VendEvent)
	Restocked func(ev RestockEvent)
}

func (s SinkFuncs) OnItemVended(ev VendEvent) {
	if s.Vended != nil {
		s.Vended(ev)
	}
}

func (s SinkFuncs) OnRestockUsed(ev RestockEvent) {
	if s.Restocked != nil {
		s.Restocked(ev)
	}
}
