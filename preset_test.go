package detecs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	detecs "github.com/arkavel/detecs"
)

func writePreset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPresetTOML(t *testing.T) {
	path := writePreset(t, "combat.toml", `
name = "combat"
disabled = ["DebugOverlay"]

[[systems]]
name = "Damage"
after = ["Armor"]

[logging]
level = "debug"
structure = "keyvalue"
`)

	preset, err := detecs.LoadPreset(path)
	require.NoError(t, err)
	require.Equal(t, "combat", preset.Name)
	require.Equal(t, []string{"DebugOverlay"}, preset.Disabled)
	require.Len(t, preset.Systems, 1)
	require.Equal(t, []string{"Armor"}, preset.Systems[0].After)
	require.Equal(t, detecs.ObservationLogFormatKeyValue, preset.Logging.LogFormat())
}

func TestLoadPresetYAML(t *testing.T) {
	path := writePreset(t, "headless.yaml", `
disabled:
  - Render
systems:
  - name: Simulate
    enabled: true
logging:
  level: info
`)

	preset, err := detecs.LoadPreset(path)
	require.NoError(t, err)
	// Name defaults to the file stem.
	require.Equal(t, "headless", preset.Name)
	require.Equal(t, []string{"Render"}, preset.Disabled)
	require.NotNil(t, preset.Systems[0].Enabled)
	require.True(t, *preset.Systems[0].Enabled)
	require.Equal(t, detecs.ObservationLogFormatJSON, preset.Logging.LogFormat())
}

func TestLoadPresetRejectsUnknownExtension(t *testing.T) {
	path := writePreset(t, "bad.ini", "x=1")
	_, err := detecs.LoadPreset(path)
	require.Error(t, err)
}

func TestPresetApplyDisablesAndConstrains(t *testing.T) {
	set := detecs.NewSystemSet()
	require.NoError(t, set.Add(sys("Damage", detecs.PhaseFixedSimulation)))
	require.NoError(t, set.Add(sys("Armor", detecs.PhaseFixedSimulation)))
	require.NoError(t, set.Add(sys("DebugOverlay", detecs.PhaseFrameUI)))

	preset := &detecs.Preset{
		Name:     "combat",
		Disabled: []string{"DebugOverlay"},
		Systems: []detecs.PresetSystem{
			{Name: "Damage", After: []string{"Armor"}},
		},
	}
	preset.Apply(set, nil)

	plan, err := detecs.BuildPlan(set, nil)
	require.NoError(t, err)
	require.Empty(t, plan.PhaseSystems(detecs.PhaseFrameUI))
	require.Equal(t, []string{"Armor", "Damage"}, planNames(plan.PhaseSystems(detecs.PhaseFixedSimulation)))
}

func TestPresetApplySkipsUnknownSystems(t *testing.T) {
	set := detecs.NewSystemSet()
	require.NoError(t, set.Add(sys("Simulate", detecs.PhaseFixedSimulation)))

	logger := &recordLogger{}
	preset := &detecs.Preset{
		Name:     "broken",
		Disabled: []string{"Ghost"},
		Systems:  []detecs.PresetSystem{{Name: "Phantom", Before: []string{"Simulate"}}},
	}
	preset.Apply(set, logger)

	plan, err := detecs.BuildPlan(set, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Simulate"}, planNames(plan.PhaseSystems(detecs.PhaseFixedSimulation)))
	require.True(t, logger.Contains("preset disables unknown system, skipped"))
	require.True(t, logger.Contains("preset references unknown system, skipped"))
}

func TestPresetApplyEnabledOverride(t *testing.T) {
	set := detecs.NewSystemSet()
	require.NoError(t, set.Add(sys("Render", detecs.PhaseFrameView)))
	set.Disable("Render")

	on := true
	preset := &detecs.Preset{Systems: []detecs.PresetSystem{{Name: "Render", Enabled: &on}}}
	preset.Apply(set, nil)

	plan, err := detecs.BuildPlan(set, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Render"}, planNames(plan.PhaseSystems(detecs.PhaseFrameView)))
}
