package model

import (
	"fmt"
	"sync"
)

// ItemRef is an opaque identifier of a dispensable item type.
// The vending core never interprets it; presentation and spawning
// collaborators resolve it against their own item tables.
type ItemRef string

// TemplateRow is one configured slot of a machine: which item it
// dispenses and how many units a freshly stocked machine holds.
type TemplateRow struct {
	Item         ItemRef
	InitialStock int32
}

// CatalogTemplate is the immutable initial stock list of a machine type.
// It is built once from machine definition data and shared by every
// machine instance of that type; the live Catalog clones it on reset.
type CatalogTemplate struct {
	rows []TemplateRow
}

// NewCatalogTemplate copies rows into an immutable template.
// Rows are kept verbatim, including invalid ones — filtering happens
// at materialization so availability of one slot never depends on
// another slot's configuration.
func NewCatalogTemplate(rows []TemplateRow) *CatalogTemplate {
	cp := make([]TemplateRow, len(rows))
	copy(cp, rows)
	return &CatalogTemplate{rows: cp}
}

// Rows returns a copy of the template rows.
func (t *CatalogTemplate) Rows() []TemplateRow {
	cp := make([]TemplateRow, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Len returns the number of configured rows (valid or not).
func (t *CatalogTemplate) Len() int {
	return len(t.rows)
}

// CatalogEntry is one live slot: the item it dispenses and how many
// units remain. Remaining stock only decreases through Decrement and
// only resets through Catalog.Reset.
type CatalogEntry struct {
	item      ItemRef
	remaining int32
}

// Item returns the entry's item reference.
func (e *CatalogEntry) Item() ItemRef { return e.item }

// Remaining returns the entry's remaining stock.
func (e *CatalogEntry) Remaining() int32 { return e.remaining }

// StockRow is a read-only availability row for presentation.
type StockRow struct {
	Item      ItemRef
	Remaining int32
}

// Catalog is the live, mutable slot list of a single machine.
// Thread-safe: guarded by RWMutex. Entries are owned exclusively by
// the catalog; readers only ever see copies.
type Catalog struct {
	mu      sync.RWMutex
	entries []*CatalogEntry
}

// NewCatalog creates an empty catalog. It holds no entries until the
// first Reset, so a machine vends nothing before its spawn event.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Reset discards every live entry and materializes fresh ones from the
// template. Rows with an empty item reference or negative stock are
// skipped rather than failing the whole catalog. Entries are always
// newly allocated so no reference from a previous generation survives.
func (c *Catalog) Reset(template *CatalogTemplate) {
	if template == nil {
		c.mu.Lock()
		c.entries = nil
		c.mu.Unlock()
		return
	}

	fresh := make([]*CatalogEntry, 0, template.Len())
	for _, row := range template.rows {
		if row.Item == "" || row.InitialStock < 0 {
			continue
		}
		fresh = append(fresh, &CatalogEntry{
			item:      row.Item,
			remaining: row.InitialStock,
		})
	}

	c.mu.Lock()
	c.entries = fresh
	c.mu.Unlock()
}

// Len returns the number of live entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Remaining returns the remaining stock of the entry at index.
// Returns 0, false if the index is out of range.
func (c *Catalog) Remaining(index int) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.entries) {
		return 0, false
	}
	return c.entries[index].remaining, true
}

// Item returns the item reference of the entry at index.
func (c *Catalog) Item(index int) (ItemRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.entries) {
		return "", false
	}
	return c.entries[index].item, true
}

// Snapshot returns an ordered copy of the current availability.
// Safe to hand to presentation; later decrements do not leak into it.
func (c *Catalog) Snapshot() []StockRow {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := make([]StockRow, len(c.entries))
	for i, e := range c.entries {
		rows[i] = StockRow{Item: e.item, Remaining: e.remaining}
	}
	return rows
}

// Decrement reduces the entry's remaining stock by exactly one.
// Returns the dispensed item reference, or an error if the index is
// out of range or the slot is already empty. Callers that need the
// check-then-decrement pair to be atomic against other writers must
// serialize at the machine level; the catalog lock alone only
// guarantees the counter never goes negative.
func (c *Catalog) Decrement(index int) (ItemRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.entries) {
		return "", fmt.Errorf("catalog index %d out of range [0,%d)", index, len(c.entries))
	}
	e := c.entries[index]
	if e.remaining <= 0 {
		return "", fmt.Errorf("slot %d (%s) is empty", index, e.item)
	}
	e.remaining--
	return e.item, nil
}
