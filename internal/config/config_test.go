package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Defaults(t *testing.T) {
	cfg := Default()
	cfg.Targets = []string{"SRV01"}

	require.NoError(t, cfg.Normalize())

	assert.Equal(t, BySource, cfg.Technique)
	assert.Equal(t, -2*time.Hour, cfg.LookBack)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.False(t, cfg.StartTime.IsZero())
}

func TestNormalize_RequiresTargets(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Normalize())
}

func TestNormalize_RejectsUnknownTechnique(t *testing.T) {
	cfg := Default()
	cfg.Targets = []string{"SRV01"}
	cfg.Technique = "BY_MAGIC"
	assert.Error(t, cfg.Normalize())
}

func TestNormalize_KerberosNeedsDomain(t *testing.T) {
	cfg := Default()
	cfg.Targets = []string{"SRV01"}
	cfg.Technique = ByKerberos
	assert.Error(t, cfg.Normalize())

	cfg.Domain = "corp.local"
	assert.NoError(t, cfg.Normalize())
}

func TestNormalize_LookBackAlwaysNegative(t *testing.T) {
	cfg := Default()
	cfg.Targets = []string{"SRV01"}
	cfg.LookBack = 4 * time.Hour

	require.NoError(t, cfg.Normalize())
	assert.Equal(t, -4*time.Hour, cfg.LookBack)
}

func TestNormalize_DeduplicatesTargets(t *testing.T) {
	cfg := Default()
	cfg.Targets = []string{"SRV01", "srv01", " SRV02 ", "", "SRV02"}

	require.NoError(t, cfg.Normalize())
	assert.Equal(t, []string{"SRV01", "SRV02"}, cfg.Targets)
}

func TestNormalize_TargetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.txt")
	content := "SRV01\n# a comment\n\nSRV02\n  SRV03  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := Default()
	cfg.TargetsFile = path

	require.NoError(t, cfg.Normalize())
	assert.Equal(t, []string{"SRV01", "SRV02", "SRV03"}, cfg.Targets)
}

func TestNormalize_MissingTargetsFile(t *testing.T) {
	cfg := Default()
	cfg.TargetsFile = filepath.Join(t.TempDir(), "nope.txt")
	assert.Error(t, cfg.Normalize())
}
