package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	require := require.New(t)
	cfg := DefaultSchedulerConfig()
	require.NoError(cfg.Validate())
	require.NotNil(cfg.Logger)
	require.NotNil(cfg.PanicHandler)
	require.NotNil(cfg.Metrics)
}

func TestParseSchedulerConfig(t *testing.T) {
	require := require.New(t)
	cfg, err := ParseSchedulerConfig([]byte(`
workers: 4
degree: 3
height: 20
numa: false
steal_quota: 2
pin: false
ramp_up_timeout: 25ms
balance_interval: 1ms
`))
	require.NoError(err)
	require.Equal(4, cfg.Workers)
	require.Equal(3, cfg.Degree)
	require.Equal(20, cfg.Height)
	require.False(cfg.NUMA)
	require.False(cfg.Pin)
	require.Equal(2, cfg.StealQuota)
	require.Equal(25*time.Millisecond, cfg.RampUpTimeout)
	require.Equal(time.Millisecond, cfg.BalanceInterval)
	// Untouched keys keep their defaults.
	require.True(cfg.Dispatcher)
	require.Equal(6, cfg.RampUpLevel)

	n := cfg.normalized()
	require.Equal(4, n.Degree, "degree rounds up to a power of two")
}

func TestParseSchedulerConfig_Invalid(t *testing.T) {
	require := require.New(t)
	_, err := ParseSchedulerConfig([]byte("degree: 1\nsteal_quota: 0\n"))
	require.ErrorIs(err, errInvalidDegree)
	require.ErrorIs(err, errInvalidQuota)

	_, err = ParseSchedulerConfig([]byte("workers: [1, 2]"))
	require.Error(err)
}

func TestLoadSchedulerConfig(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "forkjoin.yaml")
	require.NoError(os.WriteFile(path, []byte("workers: 2\nmax_victims: 3\n"), 0o644))

	cfg, err := LoadSchedulerConfig(path)
	require.NoError(err)
	require.Equal(2, cfg.Workers)
	require.Equal(3, cfg.MaxVictims)

	_, err = LoadSchedulerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(err)
}

func TestNormalizedFillsHandlers(t *testing.T) {
	require := require.New(t)
	cfg := &SchedulerConfig{Degree: 2, Height: 4, StealQuota: 1}
	n := cfg.normalized()
	require.NotNil(n.Logger)
	require.NotNil(n.PanicHandler)
	require.NotNil(n.Metrics)
	require.Equal(defaultArenaPageBytes, n.ArenaPageBytes)
	require.Positive(n.RampUpTimeout)
}
