package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/dledlow/unitystation/internal/vend"
)

// JournalStore is the subset of JournalRepository the sink needs.
// Split out so tests can record writes without a database.
type JournalStore interface {
	InsertVend(ctx context.Context, machineID, item, actor string, at time.Time) error
	InsertRestock(ctx context.Context, machineID, serial string, at time.Time) error
}

type journalEntry struct {
	vendEv    *vend.VendEvent
	restockEv *vend.RestockEvent
	at        time.Time
}

// JournalSink is an async vend.Sink writing audit rows through a
// JournalStore. Notifications are queued on a buffered channel so the
// vend path never waits on the database; when the buffer is full the
// event is dropped with a warning — losing an audit row must not
// block or fail a sale.
type JournalSink struct {
	store JournalStore
	queue chan journalEntry
}

// NewJournalSink creates a sink with the given queue capacity.
func NewJournalSink(store JournalStore, capacity int) *JournalSink {
	if capacity <= 0 {
		capacity = 256
	}
	return &JournalSink{
		store: store,
		queue: make(chan journalEntry, capacity),
	}
}

// OnItemVended implements vend.Sink.
func (s *JournalSink) OnItemVended(ev vend.VendEvent) {
	s.enqueue(journalEntry{vendEv: &ev, at: time.Now()})
}

// OnRestockUsed implements vend.Sink.
func (s *JournalSink) OnRestockUsed(ev vend.RestockEvent) {
	s.enqueue(journalEntry{restockEv: &ev, at: time.Now()})
}

func (s *JournalSink) enqueue(e journalEntry) {
	select {
	case s.queue <- e:
	default:
		slog.Warn("vend journal queue full, dropping event")
	}
}

// Run drains the queue until the context is canceled, then flushes
// whatever is still buffered.
func (s *JournalSink) Run(ctx context.Context) error {
	slog.Info("vend journal sink started", "capacity", cap(s.queue))

	for {
		select {
		case <-ctx.Done():
			s.flush()
			slog.Info("vend journal sink stopped")
			return ctx.Err()
		case e := <-s.queue:
			s.write(e)
		}
	}
}

func (s *JournalSink) flush() {
	for {
		select {
		case e := <-s.queue:
			s.write(e)
		default:
			return
		}
	}
}

func (s *JournalSink) write(e journalEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch {
	case e.vendEv != nil:
		ev := e.vendEv
		if err := s.store.InsertVend(ctx, ev.Machine, string(ev.Item), string(ev.Actor), e.at); err != nil {
			slog.Error("writing vend journal row", "machine", ev.Machine, "error", err)
		}
	case e.restockEv != nil:
		ev := e.restockEv
		if err := s.store.InsertRestock(ctx, ev.Machine, ev.Serial, e.at); err != nil {
			slog.Error("writing restock journal row", "machine", ev.Machine, "error", err)
		}
	}
}
