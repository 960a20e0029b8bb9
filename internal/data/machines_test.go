package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMachinesFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machines.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMachines(t *testing.T) {
	path := writeMachinesFile(t, `
machines:
  - id: cargo-snack-1
    type: snack
    eject: random
    cooldown_seconds: 3
    restock_interval_seconds: 600
    slots:
      - item: soda_can
        stock: 10
      - item: chips
        stock: 5
  - id: medbay-med-1
    type: medical
    eject: none
    slots:
      - item: bandage
        stock: 12
`)

	require.NoError(t, LoadMachines(path))
	require.Len(t, MachineDefs, 2)

	def := GetMachineDef("cargo-snack-1")
	require.NotNil(t, def)
	assert.Equal(t, "snack", def.Type)
	assert.Equal(t, "random", def.Eject)
	assert.Equal(t, 3*time.Second, def.Cooldown())
	assert.Equal(t, 10*time.Minute, def.RestockInterval())
	require.Len(t, def.Slots, 2)

	med := GetMachineDef("medbay-med-1")
	require.NotNil(t, med)
	assert.Equal(t, time.Duration(0), med.Cooldown(), "no cooldown configured")
	assert.Equal(t, time.Duration(0), med.RestockInterval())

	// File order is preserved for deterministic spawning.
	assert.Equal(t, "cargo-snack-1", MachineDefs[0].ID)
	assert.Equal(t, "medbay-med-1", MachineDefs[1].ID)
}

func TestLoadMachines_FractionalCooldown(t *testing.T) {
	path := writeMachinesFile(t, `
machines:
  - id: m1
    cooldown_seconds: 1.5
    slots:
      - item: bandage
        stock: 1
`)
	require.NoError(t, LoadMachines(path))
	assert.Equal(t, 1500*time.Millisecond, GetMachineDef("m1").Cooldown())
}

func TestLoadMachines_DuplicateID(t *testing.T) {
	path := writeMachinesFile(t, `
machines:
  - id: m1
    slots: []
  - id: m1
    slots: []
`)
	err := LoadMachines(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate machine id")
}

func TestLoadMachines_MissingID(t *testing.T) {
	path := writeMachinesFile(t, `
machines:
  - type: snack
    slots: []
`)
	assert.Error(t, LoadMachines(path))
}

func TestLoadMachines_MissingFile(t *testing.T) {
	assert.Error(t, LoadMachines(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestMachineDef_TemplateKeepsInvalidRows(t *testing.T) {
	def := &MachineDef{
		ID: "m1",
		Slots: []SlotDef{
			{Item: "soda_can", Stock: 3},
			{Item: "", Stock: 5},
		},
	}

	// The template carries rows verbatim; filtering belongs to the
	// catalog reset so availability shape is decided in one place.
	tpl := def.Template()
	require.Equal(t, 2, tpl.Len())
	rows := tpl.Rows()
	assert.Equal(t, int32(5), rows[1].InitialStock)
}
