package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigia/sentinela/core"
)

func TestLoadDefaultCatalog_DeclaresFifteenSourcesCoveringEveryCapability(t *testing.T) {
	reg := newTestRegistry()

	require.NoError(t, LoadDefaultCatalog(reg))

	allCapabilities := []core.Capability{
		core.CapabilityContracts, core.CapabilityServants, core.CapabilityExpenses,
		core.CapabilityBiddings, core.CapabilityGeographic, core.CapabilityHealthData,
		core.CapabilityEducationData,
	}
	for _, cap := range allCapabilities {
		resolved := reg.Resolve(cap, Filters{})
		assert.NotEmptyf(t, resolved, "no declared source advertises capability %q", cap)
	}

	src, ok := reg.Get("portal-transparencia")
	require.True(t, ok)
	assert.Equal(t, core.FamilyFederal, src.Family)
}

func TestLoadCatalog_ParsesYAMLFileIntoRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	yamlDoc := `
sources:
  - id: custom-source
    family: state
    capabilities: [contracts]
    base_endpoint: https://example.gov.br
    priority: 1
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	reg := newTestRegistry()
	require.NoError(t, LoadCatalog(path, reg))

	src, ok := reg.Get("custom-source")
	require.True(t, ok)
	assert.Equal(t, core.FamilyState, src.Family)
	assert.True(t, src.HasCapability(core.CapabilityContracts))
}

func TestLoadCatalog_ErrorsOnMissingFile(t *testing.T) {
	reg := newTestRegistry()

	err := LoadCatalog("/nonexistent/catalog.yaml", reg)

	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}
