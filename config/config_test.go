package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1000, cfg.MaxTasks)
	assert.Equal(t, 24*time.Hour, cfg.TaskTTL.Std())
	assert.Equal(t, time.Hour, cfg.InterruptTTL.Std())
	// The engine cap and the per-workflow default are independent knobs.
	assert.Equal(t, 200, cfg.ReAct.MaxIterations)
	assert.Equal(t, 10, cfg.ReAct.DefaultWorkflowIterations)
}

func TestLoad_OverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := `
maxTasks: 50
interruptTtl: 30m
react:
  maxIterations: 20
  maxDuration: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxTasks)
	assert.Equal(t, 30*time.Minute, cfg.InterruptTTL.Std())
	assert.Equal(t, 20, cfg.ReAct.MaxIterations)
	assert.Equal(t, 5*time.Minute, cfg.ReAct.MaxDuration.Std())
	// Unset fields keep their built-in values.
	assert.Equal(t, 24*time.Hour, cfg.TaskTTL.Std())
	assert.Equal(t, 10, cfg.ReAct.DefaultWorkflowIterations)
}

func TestLoad_NonPositiveValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxTasks: -1\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MaxTasks)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("taskTtl: soon\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileReturnsDefaultsAndError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	assert.Equal(t, Default(), cfg)
}
