package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storage-analysis/internal/testutil"
	apperrors "github.com/storage-analysis/pkg/errors"
)

const aliceHex = testutil.AliceHex

type fixture struct {
	dir      string
	config   string
	schema   string
	snapshot string
	jsonDir  string
}

func newFixture(t *testing.T, withDatabase bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		config:   filepath.Join(dir, "config.yaml"),
		schema:   filepath.Join(dir, "polkadot.yaml"),
		snapshot: filepath.Join(dir, "polkadot.snap"),
		jsonDir:  filepath.Join(dir, "out"),
	}
	require.NoError(t, os.MkdirAll(f.jsonDir, 0755))

	cfg := fmt.Sprintf(`analysis:
  workers: 2
  estimator: none
output:
  json_dir: %s
database:
  enabled: %t
  type: sqlite
  path: %s
log:
  level: error
`, f.jsonDir, withDatabase, filepath.Join(dir, "history.db"))
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(f.schema, []byte(testutil.SchemaYAML), 0644))
	testutil.WriteSnapshot(t, dir, "polkadot.snap", testutil.Records())
	return f
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root, opts := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	opts.teardown(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version dev")
	assert.Contains(t, out, "Go Version:")
}

func TestInfoCmd(t *testing.T) {
	f := newFixture(t, false)

	out, _, err := execute(t, "info", "--config", f.config, "--snapshot", f.snapshot, "--schema", f.schema)
	require.NoError(t, err)

	lines := testutil.Lines(out)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "polkadot")
	assert.Contains(t, out, "System")
	assert.Contains(t, out, "Balances")
	assert.FileExists(t, filepath.Join(f.jsonDir, "polkadot_storage.json"))
}

func TestInfoCmd_Category(t *testing.T) {
	f := newFixture(t, false)

	out, _, err := execute(t, "info", "--config", f.config, "--snapshot", f.snapshot,
		"--schema", f.schema, "--category", "balances", "--workers", "1", "--gzip")
	require.NoError(t, err)
	assert.Contains(t, out, "Balances")
	assert.NotContains(t, out, "System")
	assert.FileExists(t, filepath.Join(f.jsonDir, "polkadot_storage.json.gz"))
}

func TestInfoCmd_Errors(t *testing.T) {
	f := newFixture(t, false)

	t.Run("missing snapshot", func(t *testing.T) {
		_, _, err := execute(t, "info", "--config", f.config, "--schema", f.schema)
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidInput(err))
	})

	t.Run("unknown source", func(t *testing.T) {
		_, _, err := execute(t, "info", "--config", f.config, "--snapshot", f.snapshot,
			"--schema", f.schema, "--source", "rpc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported source type")
	})

	t.Run("unknown estimator", func(t *testing.T) {
		_, _, err := execute(t, "info", "--config", f.config, "--snapshot", f.snapshot,
			"--schema", f.schema, "--estimator", "brotli")
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
	})

	t.Run("unexpected argument", func(t *testing.T) {
		_, _, err := execute(t, "info", "extra")
		require.Error(t, err)
	})
}

func TestGrepCmd_Address(t *testing.T) {
	f := newFixture(t, false)

	out, _, err := execute(t, "grep", "--config", f.config, "--snapshot", f.snapshot,
		"--schema", f.schema, "address", aliceHex)
	require.NoError(t, err)

	lines := testutil.Lines(out)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "KEY MATCH 'System::Account' 0x"))
	assert.True(t, strings.HasPrefix(lines[1], "VALUE MATCH 'Unknown' 0xffee => 0x0102d435"))
	assert.Equal(t, "Matched 2 times in 3 entries", lines[2])
}

func TestGrepCmd_Ignore(t *testing.T) {
	f := newFixture(t, false)

	out, _, err := execute(t, "grep", "--config", f.config, "--snapshot", f.snapshot,
		"--schema", f.schema, "--ignore", "System", "address", aliceHex)
	require.NoError(t, err)
	assert.NotContains(t, out, "System::Account")
	assert.Contains(t, out, "Matched 1 times in 3 entries")
}

func TestGrepCmd_ParaAccount(t *testing.T) {
	f := newFixture(t, false)

	out, _, err := execute(t, "grep", "--config", f.config, "--snapshot", f.snapshot,
		"--schema", f.schema, "para-account", "2000", "child")
	require.NoError(t, err)
	assert.Contains(t, out, "Matched 0 times in 3 entries")
}

func TestGrepCmd_Errors(t *testing.T) {
	f := newFixture(t, false)
	base := []string{"grep", "--config", f.config, "--snapshot", f.snapshot, "--schema", f.schema}

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad address", args: []string{"address", "not-an-address"}},
		{name: "short hex", args: []string{"address", "0x1234"}},
		{name: "para id out of range", args: []string{"para-account", "70000", "child"}},
		{name: "para id not a number", args: []string{"para-account", "abc", "child"}},
		{name: "bad location", args: []string{"para-account", "2000", "cousin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append(append([]string{}, base...), tt.args...)...)
			require.Error(t, err)
			assert.True(t, apperrors.IsInvalidInput(err))
		})
	}
}

func TestParseParaAccount(t *testing.T) {
	sub, err := parseParaAccount("2000", "Sibling")
	require.NoError(t, err)
	assert.Equal(t, uint16(2000), sub.ID())
	assert.Equal(t, "sibling", sub.Location().String())
}

func TestHistoryCmd(t *testing.T) {
	f := newFixture(t, true)

	_, _, err := execute(t, "info", "--config", f.config, "--snapshot", f.snapshot, "--schema", f.schema)
	require.NoError(t, err)
	_, _, err = execute(t, "grep", "--config", f.config, "--snapshot", f.snapshot,
		"--schema", f.schema, "address", aliceHex)
	require.NoError(t, err)

	out, _, err := execute(t, "history", "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, out, "COMMAND")
	assert.Contains(t, out, "info")
	assert.Contains(t, out, "2 matches in 3 entries")

	out, _, err = execute(t, "history", "--config", f.config, "--network", "kusama")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
}

func TestHistoryCmd_Disabled(t *testing.T) {
	f := newFixture(t, false)

	_, _, err := execute(t, "history", "--config", f.config)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
}

func TestInfoCmd_Pprof(t *testing.T) {
	f := newFixture(t, false)
	pprofDir := filepath.Join(f.dir, "pprof")

	_, _, err := execute(t, "info", "--config", f.config, "--snapshot", f.snapshot, "--schema", f.schema,
		"--pprof", "--pprof-dir", pprofDir, "--pprof-profiles", "heap,goroutine")
	require.NoError(t, err)

	for _, pt := range []string{"heap", "goroutine"} {
		entries, err := os.ReadDir(filepath.Join(pprofDir, pt))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	}
}

func TestRoot_BadPprofProfiles(t *testing.T) {
	f := newFixture(t, false)

	_, _, err := execute(t, "info", "--config", f.config, "--snapshot", f.snapshot, "--schema", f.schema,
		"--pprof", "--pprof-profiles", "threads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile type")
}
