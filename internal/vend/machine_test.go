package vend

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dledlow/unitystation/internal/model"
)

// recorderSink collects notifications for assertions.
type recorderSink struct {
	mu       sync.Mutex
	vended   []VendEvent
	restocks []RestockEvent
}

func (r *recorderSink) OnItemVended(ev VendEvent) {
	r.mu.Lock()
	r.vended = append(r.vended, ev)
	r.mu.Unlock()
}

func (r *recorderSink) OnRestockUsed(ev RestockEvent) {
	r.mu.Lock()
	r.restocks = append(r.restocks, ev)
	r.mu.Unlock()
}

func (r *recorderSink) vendCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.vended)
}

func (r *recorderSink) restockCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.restocks)
}

func newTestMachine(t *testing.T, cooldown time.Duration) (*Machine, *recorderSink) {
	t.Helper()

	tpl := model.NewCatalogTemplate([]model.TemplateRow{
		{Item: "soda_can", InitialStock: 3},
		{Item: "chips", InitialStock: 0},
		{Item: "", InitialStock: 5}, // invalid row
	})
	m := NewMachine("cargo-snack-1", "snack", "random", tpl, cooldown)
	m.Initialize()

	sink := &recorderSink{}
	m.AddSink(sink)
	return m, sink
}

func TestMachine_Scenario(t *testing.T) {
	m, sink := newTestMachine(t, 3*time.Second)
	t0 := time.Now()

	// Invalid template row dropped at initialization.
	rows := m.Availability()
	require.Len(t, rows, 2)
	assert.Equal(t, model.StockRow{Item: "soda_can", Remaining: 3}, rows[0])
	assert.Equal(t, model.StockRow{Item: "chips", Remaining: 0}, rows[1])

	// Vend soda: success, stock drops to 2.
	res := m.TryVend(0, "alice", t0)
	require.Equal(t, ResultSuccess, res.Code)
	assert.Equal(t, model.ItemRef("soda_can"), res.Item)
	rows = m.Availability()
	assert.Equal(t, int32(2), rows[0].Remaining)

	// Chips are out of stock: rejected regardless of cooldown.
	res = m.TryVend(1, "alice", t0)
	assert.Equal(t, ResultRejected, res.Code)

	// Alice is still cooling down: denied, stock untouched.
	res = m.TryVend(0, "alice", t0.Add(time.Millisecond))
	assert.Equal(t, ResultCooldownActive, res.Code)
	rows = m.Availability()
	assert.Equal(t, int32(2), rows[0].Remaining)

	// Exactly one notification fired, for the one success.
	assert.Equal(t, 1, sink.vendCount())
}

func TestMachine_VendBeforeInitializeRejected(t *testing.T) {
	tpl := model.NewCatalogTemplate([]model.TemplateRow{{Item: "soda_can", InitialStock: 3}})
	m := NewMachine("m", "snack", "none", tpl, 0)

	res := m.TryVend(0, "alice", time.Now())
	assert.Equal(t, ResultRejected, res.Code)
	assert.Empty(t, m.Availability())
}

func TestMachine_InvalidSlotRejected(t *testing.T) {
	m, sink := newTestMachine(t, 0)

	assert.Equal(t, ResultRejected, m.TryVend(-1, "alice", time.Now()).Code)
	assert.Equal(t, ResultRejected, m.TryVend(99, "alice", time.Now()).Code)
	assert.Equal(t, 0, sink.vendCount())
}

func TestMachine_EmptySlotDoesNotBurnCooldown(t *testing.T) {
	m, _ := newTestMachine(t, time.Minute)
	t0 := time.Now()

	// Attempting the empty chips slot must not record a cooldown
	// timestamp for alice...
	require.Equal(t, ResultRejected, m.TryVend(1, "alice", t0).Code)

	// ...so an immediate vend of a stocked slot still succeeds.
	assert.Equal(t, ResultSuccess, m.TryVend(0, "alice", t0).Code)
}

func TestMachine_CooldownDenialKeepsTimestamp(t *testing.T) {
	m, _ := newTestMachine(t, 3*time.Second)
	t0 := time.Now()

	require.Equal(t, ResultSuccess, m.TryVend(0, "alice", t0).Code)
	require.Equal(t, ResultCooldownActive, m.TryVend(0, "alice", t0.Add(time.Second)).Code)

	// The denial did not slide the window: t0+3s is still admitted.
	assert.Equal(t, ResultSuccess, m.TryVend(0, "alice", t0.Add(3*time.Second)).Code)
}

func TestMachine_ActorsDoNotShareCooldown(t *testing.T) {
	m, _ := newTestMachine(t, time.Minute)
	t0 := time.Now()

	require.Equal(t, ResultSuccess, m.TryVend(0, "alice", t0).Code)
	assert.Equal(t, ResultSuccess, m.TryVend(0, "bob", t0).Code)
}

func TestMachine_CanSell(t *testing.T) {
	m, _ := newTestMachine(t, 3*time.Second)
	t0 := time.Now()

	assert.True(t, m.CanSell(0, "alice", t0))
	assert.False(t, m.CanSell(1, "alice", t0), "empty slot")
	assert.False(t, m.CanSell(99, "alice", t0), "invalid slot")

	// CanSell is read-only: polling it must not open a cooldown window.
	for loopIdx := 0; loopIdx < 10; loopIdx++ {
		assert.True(t, m.CanSell(0, "alice", t0))
	}
	require.Equal(t, ResultSuccess, m.TryVend(0, "alice", t0).Code)
	assert.False(t, m.CanSell(0, "alice", t0.Add(time.Second)))
	assert.True(t, m.CanSell(0, "alice", t0.Add(3*time.Second)))
}

func TestMachine_NoOversellUnderConcurrency(t *testing.T) {
	const initial = 25
	const workers = 8
	const attemptsPerWorker = 50

	tpl := model.NewCatalogTemplate([]model.TemplateRow{{Item: "soda_can", InitialStock: initial}})
	m := NewMachine("m", "snack", "none", tpl, 0) // cooldown off: isolate stock invariant
	m.Initialize()

	sink := &recorderSink{}
	m.AddSink(sink)

	var g errgroup.Group
	var mu sync.Mutex
	successes := 0

	for w := 0; w < workers; w++ {
		actor := model.ActorID(rune('a' + w))
		g.Go(func() error {
			for loopIdx := 0; loopIdx < attemptsPerWorker; loopIdx++ {
				if m.TryVend(0, actor, time.Now()).Succeeded() {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, initial, successes)
	assert.Equal(t, initial, sink.vendCount(), "exactly one notification per success")

	rows := m.Availability()
	assert.Equal(t, int32(0), rows[0].Remaining)
}

func TestMachine_InitializeRestoresStock(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	t0 := time.Now()

	require.Equal(t, ResultSuccess, m.TryVend(0, "alice", t0).Code)
	require.Equal(t, ResultSuccess, m.TryVend(0, "bob", t0).Code)

	before := m.Availability()
	require.Equal(t, int32(1), before[0].Remaining)

	m.Initialize()
	after := m.Availability()
	assert.Equal(t, int32(3), after[0].Remaining)
	assert.Equal(t, int32(0), after[1].Remaining)

	// Depleted is not terminal: the slot sells again.
	assert.Equal(t, ResultSuccess, m.TryVend(0, "carol", t0).Code)
}

func TestMachine_VendEventCarriesEjectPolicy(t *testing.T) {
	m, sink := newTestMachine(t, 0)

	require.Equal(t, ResultSuccess, m.TryVend(0, "alice", time.Now()).Code)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.vended, 1)
	ev := sink.vended[0]
	assert.Equal(t, "cargo-snack-1", ev.Machine)
	assert.Equal(t, model.ItemRef("soda_can"), ev.Item)
	assert.Equal(t, model.ActorID("alice"), ev.Actor)
	assert.Equal(t, EjectRequest{Machine: "cargo-snack-1", Direction: "random"}, ev.Eject)
}

func TestMachine_RestockConsume(t *testing.T) {
	m, sink := newTestMachine(t, 0)
	issuer := NewCartridgeIssuer()
	m.SetDespawner(issuer)

	cartridge := issuer.Issue()
	require.Equal(t, 1, issuer.Outstanding())

	require.True(t, m.RestockConsume(cartridge))
	assert.Equal(t, 1, sink.restockCount())
	assert.True(t, cartridge.Spent())
	assert.Equal(t, 0, issuer.Outstanding(), "despawn signaled")

	sink.mu.Lock()
	assert.Equal(t, cartridge.Serial(), sink.restocks[0].Serial)
	sink.mu.Unlock()
}

func TestMachine_RestockConsumeIneligiblePayloads(t *testing.T) {
	m, sink := newTestMachine(t, 0)

	assert.False(t, m.RestockConsume(nil))
	assert.False(t, m.RestockConsume(heldItem{name: "crowbar"}))
	assert.Equal(t, 0, sink.restockCount(), "no notification on failure")
}

func TestMachine_RestockConsumeSpentCartridge(t *testing.T) {
	m, sink := newTestMachine(t, 0)
	cartridge := model.NewRestockCartridge()

	require.True(t, m.RestockConsume(cartridge))
	assert.False(t, m.RestockConsume(cartridge), "single use")
	assert.Equal(t, 1, sink.restockCount())
}

func TestMachine_RestockDoesNotTouchStock(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	require.Equal(t, ResultSuccess, m.TryVend(0, "alice", time.Now()).Code)

	before := m.Availability()
	require.True(t, m.RestockConsume(model.NewRestockCartridge()))
	assert.Equal(t, before, m.Availability())
}

func TestResultCode_String(t *testing.T) {
	assert.Equal(t, "Rejected", ResultRejected.String())
	assert.Equal(t, "CooldownActive", ResultCooldownActive.String())
	assert.Equal(t, "Success", ResultSuccess.String())
	assert.Equal(t, "Unknown", ResultCode(99).String())
}
