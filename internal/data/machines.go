package data

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dledlow/unitystation/internal/model"
)

// SlotDef is one configured slot of a machine definition.
type SlotDef struct {
	Item  string `yaml:"item"`
	Stock int32  `yaml:"stock"`
}

// MachineDef describes one vending machine placed on the station.
type MachineDef struct {
	ID              string    `yaml:"id"`
	Type            string    `yaml:"type"`
	Eject           string    `yaml:"eject"` // none, up, down, random
	CooldownSeconds float64   `yaml:"cooldown_seconds"`
	RestockSeconds  int       `yaml:"restock_interval_seconds"` // 0 = no scheduled restock
	Slots           []SlotDef `yaml:"slots"`
}

// Cooldown returns the per-actor vend cooldown. Zero disables it.
func (d *MachineDef) Cooldown() time.Duration {
	if d.CooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(d.CooldownSeconds * float64(time.Second))
}

// RestockInterval returns the scheduled restock interval. Zero
// disables scheduled restocks for the machine.
func (d *MachineDef) RestockInterval() time.Duration {
	if d.RestockSeconds <= 0 {
		return 0
	}
	return time.Duration(d.RestockSeconds) * time.Second
}

// Template builds the immutable catalog template for this definition.
// Slot rows are carried over verbatim; invalid rows (empty item,
// negative stock) are filtered later by Catalog.Reset so one bad row
// never takes the machine out of service.
func (d *MachineDef) Template() *model.CatalogTemplate {
	rows := make([]model.TemplateRow, 0, len(d.Slots))
	for _, s := range d.Slots {
		rows = append(rows, model.TemplateRow{
			Item:         model.ItemRef(s.Item),
			InitialStock: s.Stock,
		})
	}
	return model.NewCatalogTemplate(rows)
}

// MachineTable is the global registry of machine definitions,
// keyed by machine ID. Populated by LoadMachines.
var MachineTable map[string]*MachineDef

// MachineDefs preserves file order for deterministic spawning.
var MachineDefs []*MachineDef

// GetMachineDef returns the definition for a machine ID.
// Returns nil if not loaded or unknown.
func GetMachineDef(id string) *MachineDef {
	if MachineTable == nil {
		return nil
	}
	return MachineTable[id]
}

type machinesFile struct {
	Machines []*MachineDef `yaml:"machines"`
}

// LoadMachines reads machine definitions from a YAML file and builds
// MachineTable / MachineDefs. Definitions without an ID and duplicate
// IDs fail the load: a misaddressed machine is a config error, unlike
// a single bad slot row.
func LoadMachines(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading machine definitions %s: %w", path, err)
	}

	var file machinesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing machine definitions %s: %w", path, err)
	}

	table := make(map[string]*MachineDef, len(file.Machines))
	defs := make([]*MachineDef, 0, len(file.Machines))
	for i, def := range file.Machines {
		if def == nil || def.ID == "" {
			return fmt.Errorf("machine definition %d has no id", i)
		}
		if _, exists := table[def.ID]; exists {
			return fmt.Errorf("duplicate machine id %q", def.ID)
		}
		for _, s := range def.Slots {
			if s.Item == "" || s.Stock < 0 {
				slog.Warn("invalid slot row in machine definition",
					"machine", def.ID, "item", s.Item, "stock", s.Stock)
			}
		}
		table[def.ID] = def
		defs = append(defs, def)
	}

	MachineTable = table
	MachineDefs = defs

	slog.Info("loaded machine definitions", "count", len(defs), "path", path)
	return nil
}
