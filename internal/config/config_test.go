package config

import (
	"os"
	"path/filepath"
	"testing"

	"annotext/internal/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ANNOTEXT_DICTIONARY", "")
	t.Setenv("ANNOTEXT_DB", "")
	t.Setenv("ANNOTEXT_BLOCK_PREFIX", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dictionary:
  path: terms.yaml
  fold_case: true
tracking:
  dedupe_per_cycle: true
  namespaces:
    - name: origin
      attribute: data-origin
blocks:
  prefix: para
storage:
  path: custom.db
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "terms.yaml", cfg.Dictionary.Path)
	assert.True(t, cfg.Dictionary.FoldCase)
	assert.True(t, cfg.Tracking.DedupePerCycle)
	assert.Equal(t, []lifecycle.Namespace{{Name: "origin", Attribute: "data-origin"}}, cfg.Tracking.Namespaces)
	assert.Equal(t, "para", cfg.Blocks.Prefix)
	assert.Equal(t, "uniqueId", cfg.Blocks.Attribute, "unset keys keep their default")
	assert.True(t, cfg.Blocks.AutoAssign)
	assert.Equal(t, "custom.db", cfg.Storage.Path)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ANNOTEXT_DICTIONARY", "env-terms.yaml")
	t.Setenv("ANNOTEXT_DB", "env.db")
	t.Setenv("ANNOTEXT_BLOCK_PREFIX", "env")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-terms.yaml", cfg.Dictionary.Path)
	assert.Equal(t, "env.db", cfg.Storage.Path)
	assert.Equal(t, "env", cfg.Blocks.Prefix)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blocks: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
