package crossfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jbearak/rlsp/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rlsp.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile_OverlaysOnlySpecifiedFields(t *testing.T) {
	path := writeConfigFile(t, `{
		// only the chain depth is overridden here
		"maxChainDepth": 5,
	}`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.MaxChainDepth = 5
	assert.Equal(t, want, cfg)
}

func TestLoadConfigFile_AssumeCallSite(t *testing.T) {
	path := writeConfigFile(t, `{"assumeCallSite": "start"}`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, CallSiteAssumeStart, cfg.AssumeCallSite)
}

func TestLoadConfigFile_InvalidAssumeCallSite(t *testing.T) {
	path := writeConfigFile(t, `{"assumeCallSite": "sideways"}`)

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestLoadConfigFile_Severities(t *testing.T) {
	path := writeConfigFile(t, `{
		"missingFileSeverity": "warning",
		"missingPackageSeverity": "hint",
	}`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, diag.Warning, cfg.MissingFileSeverity)
	assert.Equal(t, diag.Hint, cfg.MissingPackageSeverity)
}

func TestLoadConfigFile_InvalidSeverity(t *testing.T) {
	path := writeConfigFile(t, `{"missingFileSeverity": "catastrophic"}`)

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "does-not-exist.jsonc"))
	assert.Error(t, err)
}

func TestLoadConfigFile_MalformedJSON(t *testing.T) {
	path := writeConfigFile(t, `{ not json`)

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}
