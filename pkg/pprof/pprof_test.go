package pprof

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storage-analysis/pkg/utils"
)

func TestParseProfileTypes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []ProfileType
		wantErr bool
	}{
		{name: "empty uses defaults", input: "", want: DefaultProfileTypes()},
		{name: "single", input: "heap", want: []ProfileType{ProfileHeap}},
		{name: "mixed case and spaces", input: " CPU , goroutine", want: []ProfileType{ProfileCPU, ProfileGoroutine}},
		{name: "duplicates dropped", input: "heap,heap,allocs", want: []ProfileType{ProfileHeap, ProfileAllocs}},
		{name: "unknown", input: "cpu,threads", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfileTypes(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.Profiles = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Enabled = true
	cfg.OutputDir = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Enabled = true
	cfg.MaxFiles = -1
	assert.Error(t, cfg.Validate())
}

func TestProfiler_StartStop(t *testing.T) {
	dir := t.TempDir()
	clock := utils.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p, err := New(&Config{
		Enabled:   true,
		OutputDir: dir,
		Profiles:  []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine},
	}, WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, p.Start())
	assert.True(t, p.Running())
	assert.Error(t, p.Start())

	written, err := p.Stop()
	require.NoError(t, err)
	assert.False(t, p.Running())
	assert.Equal(t, []string{
		filepath.Join(dir, "cpu", "cpu_20240501_120000.pprof"),
		filepath.Join(dir, "heap", "heap_20240501_120000.pprof"),
		filepath.Join(dir, "goroutine", "goroutine_20240501_120000.pprof"),
	}, written)
	for _, path := range written {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	written, err = p.Stop()
	assert.NoError(t, err)
	assert.Empty(t, written)
}

func TestProfiler_Rotate(t *testing.T) {
	dir := t.TempDir()
	heapDir := filepath.Join(dir, "heap")
	require.NoError(t, os.MkdirAll(heapDir, 0755))
	for _, name := range []string{"heap_20240101_000000.pprof", "heap_20240102_000000.pprof", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(heapDir, name), []byte("x"), 0644))
	}

	clock := utils.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	p, err := New(&Config{
		Enabled:   true,
		OutputDir: dir,
		Profiles:  []ProfileType{ProfileHeap},
		MaxFiles:  2,
	}, WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, p.Start())
	_, err = p.Stop()
	require.NoError(t, err)

	entries, err := os.ReadDir(heapDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"heap_20240102_000000.pprof", "heap_20240501_120000.pprof", "notes.txt"}, names)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Enabled: true, OutputDir: ""})
	assert.Error(t, err)
}
