package spawn

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dledlow/unitystation/internal/data"
	"github.com/dledlow/unitystation/internal/vend"
)

// restockTask tracks the next scheduled restock of one machine.
type restockTask struct {
	machine *vend.Machine
	every   time.Duration
	nextAt  time.Time
}

// Spawner materializes vending machines from their definitions and
// keeps scheduled restocks running. Spawning a machine initializes its
// catalog from the template — the same wholesale reset a scheduled
// restock performs later.
type Spawner struct {
	registry *vend.Registry

	mu    sync.Mutex
	tasks map[string]*restockTask // machineID → task
}

// NewSpawner creates a spawner writing into registry.
func NewSpawner(registry *vend.Registry) *Spawner {
	return &Spawner{
		registry: registry,
		tasks:    make(map[string]*restockTask),
	}
}

// SpawnAll spawns one machine per loaded definition: builds it,
// initializes its catalog and registers it. Definitions with a restock
// interval are scheduled starting from now.
func (s *Spawner) SpawnAll(defs []*data.MachineDef, now time.Time) {
	for _, def := range defs {
		s.Spawn(def, now)
	}
	slog.Info("machines spawned", "count", s.registry.Count())
}

// Spawn materializes a single machine from its definition.
func (s *Spawner) Spawn(def *data.MachineDef, now time.Time) *vend.Machine {
	m := vend.NewMachine(def.ID, def.Type, def.Eject, def.Template(), def.Cooldown())
	m.Initialize()
	s.registry.Register(m)

	if every := def.RestockInterval(); every > 0 {
		s.mu.Lock()
		s.tasks[def.ID] = &restockTask{machine: m, every: every, nextAt: now.Add(every)}
		s.mu.Unlock()
	}

	slog.Info("machine spawned",
		"machine", def.ID,
		"type", def.Type,
		"slots", len(def.Slots),
		"cooldown", def.Cooldown(),
		"restock_every", def.RestockInterval())
	return m
}

// Run drives scheduled restocks until the context is canceled.
func (s *Spawner) Run(ctx context.Context) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	slog.Info("restock scheduler started", "interval", "1s")

	for {
		select {
		case <-ctx.Done():
			slog.Info("restock scheduler stopping")
			return ctx.Err()
		case now := <-ticker.C:
			s.processDue(now)
		}
	}
}

// processDue resets every machine whose restock is due and schedules
// the next run. Split out of Run so tests can drive it with synthetic
// clocks.
func (s *Spawner) processDue(now time.Time) {
	s.mu.Lock()
	due := make([]*restockTask, 0)
	for _, t := range s.tasks {
		if !now.Before(t.nextAt) {
			due = append(due, t)
			t.nextAt = now.Add(t.every)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.machine.Initialize()
		slog.Info("scheduled restock", "machine", t.machine.ID())
	}
}
