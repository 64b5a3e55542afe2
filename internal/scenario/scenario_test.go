package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinScenariosAreWellFormed(t *testing.T) {
	scenarios := Builtin()
	require.NotEmpty(t, scenarios)

	seen := map[string]bool{}
	for _, sc := range scenarios {
		assert.NotEmpty(t, sc.Name)
		assert.False(t, seen[sc.Name], "duplicate scenario name %q", sc.Name)
		seen[sc.Name] = true

		assert.NotEmpty(t, sc.Input.EquipmentModel)
		assert.NotEmpty(t, sc.Input.Measurements)
		assert.NotEmpty(t, sc.ExpectedStatus)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	content := `[
		{
			"name": "custom",
			"input": {
				"equipment_model": "PSU-X",
				"measurements": [{"test_point": "TP1", "value": 5.0, "unit": "V"}]
			},
			"expected_status": "normal"
		}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	scenarios, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "custom", scenarios[0].Name)
	assert.Equal(t, "PSU-X", scenarios[0].Input.EquipmentModel)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
