package sysinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalingFrequency(t *testing.T) {
	root := t.TempDir()
	write := func(cpu, value string) {
		dir := filepath.Join(root, cpu, "cpufreq")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scaling_cur_freq"), []byte(value), 0o600))
	}
	write("cpu0", "800000\n")
	write("cpu1", "4200000\n")
	write("cpu2", "garbage\n")

	mhz, ok := scalingFrequency(filepath.Join(root, "cpu[0-9]*", "cpufreq", "scaling_cur_freq"))
	require.True(t, ok)
	assert.InDelta(t, 2500.0, mhz, 0.001)

	_, ok = scalingFrequency(filepath.Join(t.TempDir(), "cpu[0-9]*", "cpufreq", "scaling_cur_freq"))
	assert.False(t, ok)
}
